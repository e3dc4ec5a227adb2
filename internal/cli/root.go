// Package cli provides the rowbridge command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/cli/commands"
	"github.com/rowbridge/rowbridge/internal/cli/config"
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

var cfgFile string

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rowbridge",
		Short: "rowbridge - tabular data conversion and transformation",
		Long: `rowbridge converts tabular data among CSV, JSON, and Excel workbooks,
with optional declarative rule files or Starlark transform scripts applied
to the converted output.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if used := config.FileUsed(); used != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", used)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./rowbridge.yaml)")
	rootCmd.PersistentFlags().Bool("preserve-types", true, "Infer numbers and booleans when decoding")
	rootCmd.PersistentFlags().String("delimiter", config.DefaultDelimiter, "CSV field delimiter (single character)")
	rootCmd.PersistentFlags().Int("indent", config.DefaultIndent, "JSON pretty-print width in spaces")
	rootCmd.PersistentFlags().Bool("overwrite", false, "Overwrite existing destination files")
	rootCmd.PersistentFlags().Bool("flatten-paths", false, "Explode nested JSON objects into dotted-path columns")
	rootCmd.PersistentFlags().String("sheet-name", config.DefaultSheetName, "Sheet label for Excel output")
	rootCmd.PersistentFlags().Int("batch-size", config.DefaultBatchSize, "Progress reporting interval for batch runs")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewBatchCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
