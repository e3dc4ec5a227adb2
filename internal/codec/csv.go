package codec

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/record"
)

// CSVOptions configures the CSV codec.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// DynamicTyping enables per-cell number and boolean inference on decode.
	DynamicTyping bool
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// numberPattern accepts only tokens that are numeric in their entirety.
// strconv.ParseFloat alone is too permissive for cell inference: it accepts
// "Inf", "NaN", and hex floats.
var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// inferCell applies best-effort type recovery to a single cell: whole-token
// number, then exact true/false literal, else the string unchanged.
func inferCell(cell string, dynamic bool) any {
	if !dynamic {
		return cell
	}
	if tok := strings.TrimSpace(cell); numberPattern.MatchString(tok) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f
		}
	}
	switch cell {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}

// DecodeCSV parses delimited text into a record set. The first row supplies
// the field names and blank lines are skipped. Any parse error (such as an
// unterminated quote) aborts the whole decode: partial results are discarded.
func DecodeCSV(r io.Reader, opts CSVOptions) (*record.Set, error) {
	// Strip a UTF-8/UTF-16 byte-order mark before the header row is read,
	// otherwise the first column name silently carries the mark.
	bomAware := transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))

	cr := csv.NewReader(bomAware)
	cr.Comma = opts.comma()
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return record.NewSet(), nil
	}
	if err != nil {
		return nil, &pipeline.ParseError{Err: err}
	}

	set := record.NewSet()
	set.AddColumns(header...)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &pipeline.ParseError{Err: err}
		}
		if isBlankRow(row) {
			continue
		}
		rec := make(record.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = inferCell(row[i], opts.DynamicTyping)
			} else {
				rec[col] = ""
			}
		}
		set.Append(rec)
	}
	return set, nil
}

// isBlankRow reports whether every field of the row is empty. encoding/csv
// skips truly empty lines already; this catches lines of bare delimiters.
func isBlankRow(row []string) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}

// EncodeCSV writes the set as delimited text: a header row from the column
// union in first-seen order, then one row per record. Missing and nil values
// become empty strings; nested objects and arrays are JSON-stringified since
// the grid is flat text.
func EncodeCSV(w io.Writer, set *record.Set, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.comma()

	if err := cw.Write(set.Columns); err != nil {
		return err
	}
	row := make([]string, len(set.Columns))
	for _, rec := range set.Records {
		for i, col := range set.Columns {
			row[i] = CellString(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CellString renders any record value as flat cell text. Shared by the CSV
// and workbook encoders.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
