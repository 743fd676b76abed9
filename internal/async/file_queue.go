package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// FileQueue runs jobs on a fixed worker pool. A path is never processed by
// two workers at once: a job for a path that is already queued is dropped,
// and one for a path in flight is re-run once the current run ends.
type FileQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	sendMu   sync.RWMutex // held for reading while sending on ch
	mu       sync.Mutex
	closed   bool
	queued   map[string]struct{}
	inFlight map[string]bool // value: rerun requested
}

type Option func(*FileQueue)

func WithWorkers(n int) Option {
	return func(q *FileQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *FileQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *FileQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewFileQueue(handler Handler, logger *slog.Logger, opts ...Option) *FileQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &FileQueue{
		handler:  handler,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
		queued:   map[string]struct{}{},
		inFlight: map[string]bool{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *FileQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *FileQueue) run(workerID int, job Job) {
	q.mu.Lock()
	delete(q.queued, job.Path)
	q.inFlight[job.Path] = false
	q.mu.Unlock()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.handler(ctx, job)
		cancel()

		if err != nil {
			q.logger.Error("async.job.failed", "worker_id", workerID, "path", job.Path, "error", err)
		} else {
			q.logger.Info("async.job.ok", "worker_id", workerID, "path", job.Path,
				"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
		}

		q.mu.Lock()
		rerun := q.inFlight[job.Path]
		if !rerun || q.closed {
			delete(q.inFlight, job.Path)
			q.mu.Unlock()
			return
		}
		q.inFlight[job.Path] = false
		q.mu.Unlock()
		q.logger.Info("async.job.rerun", "worker_id", workerID, "path", job.Path)
	}
}

func (q *FileQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if _, ok := q.queued[job.Path]; ok {
		q.mu.Unlock()
		q.logger.Debug("already queued", "path", job.Path)
		return nil
	}
	if _, ok := q.inFlight[job.Path]; ok {
		q.inFlight[job.Path] = true
		q.mu.Unlock()
		q.logger.Debug("in flight, rerun scheduled", "path", job.Path)
		return nil
	}
	q.queued[job.Path] = struct{}{}

	select {
	case q.ch <- job:
		q.mu.Unlock()
		q.logger.Info("queued file for processing", "path", job.Path)
		return nil
	default:
	}
	// full: wait without holding the lock so workers can make progress
	q.mu.Unlock()
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.queued, job.Path)
		q.mu.Unlock()
		return ctx.Err()
	}
}

func (q *FileQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
