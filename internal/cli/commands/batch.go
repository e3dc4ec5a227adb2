package commands

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/engine"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &ConvertOptions{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Convert multiple files sequentially",
		Long: `Convert a list of files one after another with the same options.

Units are processed strictly in order. A failing unit is recorded and the
batch continues; Ctrl-C cancels between units, never mid-unit. The final
report counts converted, skipped, and failed units.`,
		Example: `  # Convert a set of CSV files to JSON
  rowbridge batch a.csv b.csv c.csv --to json

  # Machine-readable report for CI
  rowbridge batch *.csv --to json --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, opts, jsonOutput)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the final report as JSON")
	return cmd
}

func runBatch(cmd *cobra.Command, sources []string, opts *ConvertOptions, jsonOutput bool) error {
	cfg := getConfig(cmd)
	engOpts, err := opts.engineOptions(cfg)
	if err != nil {
		return err
	}

	units := make([]engine.Unit, len(sources))
	for i, src := range sources {
		units[i] = engine.Unit{Source: src, Options: engOpts}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := getLogger(cmd)
	runner := engine.NewRunner(engine.New(logger), logger)
	runner.ProgressEvery = cfg.BatchSize

	report := runner.Run(ctx, units)

	if jsonOutput {
		return writeJSONReport(cmd, report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d converted, %d skipped, %d failed\n",
		report.RunID, report.Converted, report.Skipped, report.Failed)
	for _, ue := range report.Errors {
		fmt.Fprintf(out, "  %s: %s\n", ue.Source, ue.Message)
	}
	if report.Cancelled {
		fmt.Fprintln(out, "batch cancelled before completion")
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d units failed", report.Failed, len(units))
	}
	return nil
}

func writeJSONReport(cmd *cobra.Command, report *engine.Report) error {
	type unitResult struct {
		Source string `json:"source"`
		Output string `json:"output,omitempty"`
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
		Error  string `json:"error,omitempty"`
	}
	payload := struct {
		RunID     string       `json:"run_id"`
		Converted int          `json:"converted"`
		Skipped   int          `json:"skipped"`
		Failed    int          `json:"failed"`
		Cancelled bool         `json:"cancelled,omitempty"`
		Results   []unitResult `json:"results"`
	}{
		RunID:     report.RunID,
		Converted: report.Converted,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		Cancelled: report.Cancelled,
	}
	for _, r := range report.Results {
		ur := unitResult{Source: r.Source, Output: r.Output, Status: string(r.Status), Reason: r.Reason}
		if r.Err != nil {
			ur.Error = r.Err.Error()
		}
		payload.Results = append(payload.Results, ur)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
