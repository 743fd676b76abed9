package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileFunc processes one document.
type FileFunc func(ctx context.Context, path string) error

type FileResult struct {
	Path    string
	Err     error
	Elapsed time.Duration
}

type BatchStats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int // duplicates or not started because ctx ended
}

// Batch runs a FileFunc over many documents with bounded parallelism. Each
// path is handed to at most one worker, so no document is processed twice
// concurrently.
type Batch struct {
	Workers int
	Logger  *slog.Logger
}

// Run processes paths and returns results in input order. A failing file
// never stops the others; only ctx cancellation does.
func (b Batch) Run(ctx context.Context, paths []string, fn FileFunc) ([]FileResult, BatchStats) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]FileResult, len(paths))
	stats := BatchStats{Total: len(paths)}
	var mu sync.Mutex

	seen := make(map[string]struct{}, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range paths {
		results[i].Path = p
		if _, dup := seen[p]; dup {
			stats.Skipped++
			results[i].Err = errDuplicate
			continue
		}
		seen[p] = struct{}{}
		if gctx.Err() != nil {
			stats.Skipped++
			results[i].Err = gctx.Err()
			continue
		}

		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			err := fn(gctx, p)
			elapsed := time.Since(start)

			mu.Lock()
			results[i].Err = err
			results[i].Elapsed = elapsed
			if err != nil {
				stats.Failed++
			} else {
				stats.Succeeded++
			}
			mu.Unlock()

			if err != nil {
				logger.Error("ingest.batch.file_failed", "path", p, "error", err, "elapsed_ms", elapsed.Milliseconds())
			} else {
				logger.Info("ingest.batch.file_ok", "path", p, "elapsed_ms", elapsed.Milliseconds())
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("ingest.batch.done",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return results, stats
}
