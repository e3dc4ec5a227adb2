// Package codec converts between raw file content and the record data model.
// It contains the type-inference CSV codec, an order-preserving JSON codec,
// and the .xlsx workbook codec.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies one of the supported file formats.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatExcel   Format = "excel"
)

// Detect maps a file path to a format. The extension is the sole detection
// signal; anything unrecognized is FormatUnknown and must be rejected before
// any codec runs.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".xlsx", ".xls":
		return FormatExcel
	default:
		return FormatUnknown
	}
}

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown format %q (want csv, json, or excel)", s)
	}
}

// Ext returns the canonical file extension for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatExcel:
		return ".xlsx"
	default:
		return ""
	}
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}
