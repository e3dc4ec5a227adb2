package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/cli/config"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// getConfig retrieves the configuration from the command context, falling
// back to defaults so commands stay usable in tests.
func getConfig(cmd *cobra.Command) *config.Config {
	if c, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		PreserveTypes: true,
		CSVDelimiter:  config.DefaultDelimiter,
		JSONIndent:    config.DefaultIndent,
		BatchSize:     config.DefaultBatchSize,
		SheetName:     config.DefaultSheetName,
	}
}

// getLogger retrieves the logger from the command context.
func getLogger(cmd *cobra.Command) *slog.Logger {
	if l, ok := cmd.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
