// Package preview renders decoded record sets as plain-text tables.
package preview

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rowbridge/rowbridge/internal/codec"
	"github.com/rowbridge/rowbridge/internal/record"
)

// Render writes the set as a text table: header from the column union, one
// row per record, nested values shown as JSON strings. limit caps the number
// of rows shown; zero or negative means all.
func Render(w io.Writer, set *record.Set, limit int) {
	if set == nil || set.Len() == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(set.Columns))
	for i, col := range set.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	shown := set.Len()
	if limit > 0 && limit < shown {
		shown = limit
	}
	for _, rec := range set.Records[:shown] {
		row := make(table.Row, len(set.Columns))
		for i, col := range set.Columns {
			row[i] = codec.CellString(rec[col])
		}
		t.AppendRow(row)
	}
	t.Render()

	if shown < set.Len() {
		fmt.Fprintf(w, "(showing %d of %d rows)\n", shown, set.Len())
	} else {
		fmt.Fprintf(w, "(%d rows)\n", set.Len())
	}
}

// RenderWorkbook renders every sheet in order, each under a name heading.
func RenderWorkbook(w io.Writer, wb *record.Workbook, limit int) {
	if len(wb.Sheets) == 0 {
		fmt.Fprintln(w, "(empty workbook)")
		return
	}
	for i, sheet := range wb.Sheets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", sheet.Name)
		Render(w, sheet.Set, limit)
	}
}
