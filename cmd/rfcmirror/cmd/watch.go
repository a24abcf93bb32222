package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rfcmirror/internal/output"
	"rfcmirror/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload and reindex whenever the index file changes",
		Long: `Watch the local index file and, on every change, reload the
registry and add newly cached documents to the search index. Useful when
another process or a cron job refreshes the mirror.

Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "Quiet window before reacting to changes")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, debounce time.Duration) error {
	out := output.New(cmd.OutOrStdout())

	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watcher.New(reg.Path(), debounce)

	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx)
	}()

	// finish waits for the watcher goroutine; plain cancellation is a
	// clean shutdown, not an error.
	finish := func() error {
		err := <-done
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	out.Statusf("👀", "Watching %s", reg.Path())

	// The watcher closes its channels on any return, so a closed channel
	// here means it has stopped and done carries its result.
	for {
		select {
		case <-ctx.Done():
			return finish()

		case ev, ok := <-w.Events():
			if !ok {
				return finish()
			}
			slog.Info("index file changed", slog.String("path", ev.Path))
			if err := reg.Load(); err != nil {
				out.Errorf("Reload failed: %v", err)
				continue
			}
			added, err := reg.IndexMissing(ctx)
			if err != nil {
				out.Errorf("Reindex failed: %v", err)
				continue
			}
			out.Statusf("", "Reloaded: %d entries, %d newly indexed", reg.Len(), added)

		case werr, ok := <-w.Errors():
			if !ok {
				return finish()
			}
			slog.Warn("watcher error", slog.String("error", werr.Error()))
		}
	}
}
