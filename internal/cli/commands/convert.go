package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/cli/config"
	"github.com/rowbridge/rowbridge/internal/codec"
	"github.com/rowbridge/rowbridge/internal/engine"
)

// ConvertOptions holds flags shared by convert, batch, and watch.
type ConvertOptions struct {
	To        string
	RulesPath string
	Script    string
	AllSheets bool
}

func (o *ConvertOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.To, "to", "", "Target format: csv, json, or excel")
	cmd.Flags().StringVar(&o.RulesPath, "rules", "", "Declarative rule file applied to json output")
	cmd.Flags().StringVar(&o.Script, "script", "", "Starlark transform script applied to the output")
	cmd.Flags().BoolVar(&o.AllSheets, "all-sheets", false, "Convert every workbook sheet (excel to json)")
	_ = cmd.MarkFlagRequired("to")
}

// engineOptions combines the loaded configuration with the command flags
// into the engine's per-unit options.
func (o *ConvertOptions) engineOptions(cfg *config.Config) (engine.Options, error) {
	target, err := codec.ParseFormat(o.To)
	if err != nil {
		return engine.Options{}, err
	}
	opts := engine.Options{
		TargetFormat:  target,
		PreserveTypes: cfg.PreserveTypes,
		Overwrite:     cfg.Overwrite,
		Delimiter:     cfg.Delimiter(),
		Indent:        cfg.JSONIndent,
		FlattenPaths:  cfg.FlattenPaths,
		SheetName:     cfg.SheetName,
		AllSheets:     o.AllSheets,
		RulesPath:     o.RulesPath,
	}
	if o.Script != "" {
		src, err := os.ReadFile(o.Script)
		if err != nil {
			return engine.Options{}, fmt.Errorf("failed to read script %s: %w", o.Script, err)
		}
		opts.ScriptSource = string(src)
	}
	return opts, nil
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a file to another tabular format",
		Long: `Convert a CSV, JSON, or Excel file to another format.

The output path is the source path with the target format's extension. An
existing destination is skipped unless --overwrite is set. A rule file
(--rules, json target only) or a Starlark script (--script) is applied to
the converted output.`,
		Example: `  # CSV to JSON with 4-space indentation
  rowbridge convert data.csv --to json --indent 4

  # JSON to CSV, exploding nested objects into dotted columns
  rowbridge convert users.json --to csv --flatten-paths

  # Apply a rule file to the converted output
  rowbridge convert data.csv --to json --rules rules.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runConvert(cmd *cobra.Command, source string, opts *ConvertOptions) error {
	engOpts, err := opts.engineOptions(getConfig(cmd))
	if err != nil {
		return err
	}

	eng := engine.New(getLogger(cmd))
	res := eng.Convert(cmd.Context(), source, engOpts)
	switch res.Status {
	case engine.StatusConverted:
		fmt.Fprintf(cmd.OutOrStdout(), "converted %s -> %s\n", res.Source, res.Output)
		return nil
	case engine.StatusSkipped:
		fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: %s\n", res.Source, res.Reason)
		return nil
	default:
		return res.Err
	}
}
