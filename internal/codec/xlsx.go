package codec

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/record"
)

// DefaultSheetName is used when a sheet has no caller-supplied label.
const DefaultSheetName = "Sheet1"

// WorkbookOptions configures workbook decoding.
type WorkbookOptions struct {
	// DynamicTyping enables number and boolean inference on cell values.
	DynamicTyping bool
}

// DecodeWorkbook reads a .xlsx workbook into sheets of records. Each sheet
// uses its own first row as the header. Cells missing from a row decode as
// explicit nil, so consumers can tell an absent column from a present but
// empty one. A workbook with zero sheets, or a sheet with zero data rows, is
// valid and yields empty record sets.
func DecodeWorkbook(r io.Reader, opts WorkbookOptions) (*record.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &pipeline.ParseError{Err: err}
	}
	defer f.Close()

	wb := &record.Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, &pipeline.ParseError{Err: fmt.Errorf("sheet %q: %w", name, err)}
		}
		set := record.NewSet()
		if len(rows) > 0 {
			header := rows[0]
			set.AddColumns(header...)
			for _, row := range rows[1:] {
				rec := make(record.Record, len(header))
				for i, col := range header {
					if i < len(row) {
						rec[col] = inferCell(row[i], opts.DynamicTyping)
					} else {
						rec[col] = nil
					}
				}
				set.Append(rec)
			}
		}
		wb.Sheets = append(wb.Sheets, record.Sheet{Name: name, Set: set})
	}
	return wb, nil
}

// EncodeWorkbook writes one sheet per record set. Column order follows the
// set's first-seen key order; nil and missing values become empty cells and
// nested values are JSON-stringified.
func EncodeWorkbook(w io.Writer, wb *record.Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range wb.Sheets {
		name := sheet.Name
		if name == "" {
			name = DefaultSheetName
		}
		if i == 0 {
			if err := f.SetSheetName(DefaultSheetName, name); err != nil {
				return fmt.Errorf("sheet %q: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("sheet %q: %w", name, err)
			}
		}
		if err := writeSheet(f, name, sheet.Set); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return &pipeline.IOError{Op: "write", Path: "workbook", Err: err}
	}
	return nil
}

func writeSheet(f *excelize.File, name string, set *record.Set) error {
	if set == nil || len(set.Columns) == 0 {
		return nil
	}
	header := make([]any, len(set.Columns))
	for i, col := range set.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q: %w", name, err)
	}
	for r, rec := range set.Records {
		row := make([]any, len(set.Columns))
		for i, col := range set.Columns {
			row[i] = cellValue(rec[col])
		}
		if err := f.SetSheetRow(name, fmt.Sprintf("A%d", r+2), &row); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", name, r+2, err)
		}
	}
	return nil
}

// cellValue maps a record value to something excelize can write. Scalars keep
// their type so the spreadsheet stores real numbers and booleans.
func cellValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, float64, int64:
		return v
	default:
		return CellString(v)
	}
}
