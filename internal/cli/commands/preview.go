package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/codec"
	"github.com/rowbridge/rowbridge/internal/flatten"
	"github.com/rowbridge/rowbridge/internal/preview"
	"github.com/rowbridge/rowbridge/internal/record"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var rows int
	var sheet string
	var allSheets bool

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show a file as a text table",
		Long: `Decode a CSV, JSON, or Excel file and render it as a text table.

For workbooks the first sheet is shown by default; pick another with
--sheet or show all of them with --all-sheets.`,
		Example: `  rowbridge preview data.csv
  rowbridge preview report.xlsx --sheet Totals
  rowbridge preview users.json --rows 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], rows, sheet, allSheets)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10, "Maximum rows to show per sheet (0 for all)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet to show (default: first)")
	cmd.Flags().BoolVar(&allSheets, "all-sheets", false, "Show every workbook sheet")
	return cmd
}

func runPreview(cmd *cobra.Command, source string, rows int, sheet string, allSheets bool) error {
	cfg := getConfig(cmd)
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	out := cmd.OutOrStdout()
	switch codec.Detect(source) {
	case codec.FormatCSV:
		set, err := codec.DecodeCSV(bytes.NewReader(raw), codec.CSVOptions{
			Comma:         cfg.Delimiter(),
			DynamicTyping: cfg.PreserveTypes,
		})
		if err != nil {
			return err
		}
		preview.Render(out, set, rows)

	case codec.FormatJSON:
		set, err := flatten.Flatten(raw, flatten.Options{Paths: cfg.FlattenPaths})
		if err != nil {
			return err
		}
		preview.Render(out, set, rows)

	case codec.FormatExcel:
		wb, err := codec.DecodeWorkbook(bytes.NewReader(raw), codec.WorkbookOptions{
			DynamicTyping: cfg.PreserveTypes,
		})
		if err != nil {
			return err
		}
		if allSheets {
			preview.RenderWorkbook(out, wb, rows)
			return nil
		}
		target := wb.First()
		if sheet != "" {
			target = wb.Sheet(sheet)
			if target == nil {
				return fmt.Errorf("workbook has no sheet %q", sheet)
			}
		}
		if target == nil {
			preview.Render(out, record.NewSet(), rows)
			return nil
		}
		preview.Render(out, target.Set, rows)

	default:
		return fmt.Errorf("unsupported file type %q", source)
	}
	return nil
}
