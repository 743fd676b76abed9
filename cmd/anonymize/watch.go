package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/async"
	"github.com/joseph-ayodele/deck-anonymizer/internal/ingest"
	"github.com/joseph-ayodele/deck-anonymizer/internal/pptx"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		workers  int
		debounce time.Duration
		existing bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Anonymize decks as they appear or change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if workers <= 0 {
				workers = a.Cfg.Anonymizer.Workers
			}
			if debounce <= 0 {
				debounce = a.Cfg.Anonymizer.Debounce
			}

			queue := async.NewFileQueue(func(ctx context.Context, job async.Job) error {
				res, err := a.AnonymizeFile(ctx, job.Path, "", false)
				if err != nil {
					return err
				}
				a.Logger.Info("watch.file.done", "path", job.Path, "trace_id", job.TraceID,
					"status", res.Outcome.Status, "applied", res.Outcome.Applied, "output", res.Output)
				return nil
			}, a.Logger, async.WithWorkers(workers), async.WithProcessTimeout(timeout))

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: existing,
				Debounce:    debounce,
				SkipHidden:  true,
				Ignore:      pptx.IsOutput,
				Logger:      a.Logger,
			})
			if err != nil {
				return err
			}

			for events != nil || errs != nil {
				select {
				case path, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					if err := queue.Enqueue(ctx, async.Job{Path: path, TraceID: uuid.NewString()}); err != nil {
						a.Logger.Warn("watch.enqueue.failed", "path", path, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					a.Logger.Warn("watch.error", "error", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			queue.Shutdown(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel decks (default WORKERS)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a changed deck is processed (default WATCH_DEBOUNCE)")
	cmd.Flags().BoolVar(&existing, "existing", false, "also process decks already present at start")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "per-deck processing timeout")
	return cmd
}
