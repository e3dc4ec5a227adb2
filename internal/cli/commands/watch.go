package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/engine"
	"github.com/rowbridge/rowbridge/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Reconvert a file whenever it changes",
		Long: `Convert the file once, then watch it and reconvert on every change
until interrupted. Overwriting the destination is implied; otherwise every
rerun would be skipped.`,
		Example: `  rowbridge watch data.csv --to json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, source string, opts *ConvertOptions) error {
	engOpts, err := opts.engineOptions(getConfig(cmd))
	if err != nil {
		return err
	}
	engOpts.Overwrite = true

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := getLogger(cmd)
	err = watch.Run(ctx, engine.New(logger), source, engOpts, logger)
	if err == context.Canceled {
		return nil
	}
	return err
}
