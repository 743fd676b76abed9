package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/entity"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type RunRepository interface {
	StartRun(ctx context.Context, run entity.Run) error
	FinishRun(ctx context.Context, run entity.Run, rewrites []fragment.Rewrite) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*entity.Run, error)
	ListRewrites(ctx context.Context, runID uuid.UUID) ([]*entity.RunRewrite, error)
}

type runRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{
		db:     db,
		logger: logger,
	}
}

func (r *runRepository) StartRun(ctx context.Context, run entity.Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	q := r.db.rebind(`INSERT INTO runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.sql.ExecContext(ctx, q,
		run.ID.String(), run.Source, string(run.Status), formatTime(run.StartedAt))
	if err != nil {
		r.logger.Error("failed to start run", "run_id", run.ID, "error", err)
		return common.WrapError(err, "insert run")
	}
	r.logger.Debug("run started", "run_id", run.ID, "source", run.Source)
	return nil
}

// FinishRun upserts the final counters and replaces the run's rewrites in
// one transaction.
func (r *runRepository) FinishRun(ctx context.Context, run entity.Run, rewrites []fragment.Rewrite) error {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	var finished any
	if run.FinishedAt != nil {
		finished = formatTime(*run.FinishedAt)
	}
	var errMsg any
	if run.ErrorMessage != nil {
		errMsg = *run.ErrorMessage
	}

	upsert := r.db.rebind(`INSERT INTO runs (
		id, source, status, fragments, local_classified, remote_classified,
		fallback, dropped_items, planned, applied, error_message, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		fragments = excluded.fragments,
		local_classified = excluded.local_classified,
		remote_classified = excluded.remote_classified,
		fallback = excluded.fallback,
		dropped_items = excluded.dropped_items,
		planned = excluded.planned,
		applied = excluded.applied,
		error_message = excluded.error_message,
		finished_at = excluded.finished_at`)
	_, err = tx.ExecContext(ctx, upsert,
		run.ID.String(), run.Source, string(run.Status),
		run.Fragments, run.LocalClassified, run.RemoteClassified,
		run.Fallback, run.DroppedItems, run.Planned, run.Applied,
		errMsg, formatTime(run.StartedAt), finished,
	)
	if err != nil {
		r.logger.Error("failed to finish run", "run_id", run.ID, "error", err)
		return common.WrapError(err, "upsert run")
	}

	if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM run_rewrites WHERE run_id = ?`), run.ID.String()); err != nil {
		return common.WrapError(err, "clear rewrites")
	}
	ins := r.db.rebind(`INSERT INTO run_rewrites (run_id, seq, fragment_key, category, original, rewritten)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for i, rw := range rewrites {
		_, err := tx.ExecContext(ctx, ins,
			run.ID.String(), i, rw.ID.Key(), string(rw.Category), rw.Original, rw.Text)
		if err != nil {
			r.logger.Error("failed to record rewrite", "run_id", run.ID, "seq", i, "error", err)
			return common.WrapError(err, "insert rewrite")
		}
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, "commit")
	}
	r.logger.Debug("run finished", "run_id", run.ID, "status", run.Status, "rewrites", len(rewrites))
	return nil
}

const runColumns = `id, source, status, fragments, local_classified, remote_classified,
	fallback, dropped_items, planned, applied, error_message, started_at, finished_at`

func (r *runRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get run", "run_id", id, "error", err)
		return nil, err
	}
	return run, nil
}

// ListRuns returns the newest runs first. limit <= 0 means no limit.
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]*entity.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list runs", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *runRepository) ListRewrites(ctx context.Context, runID uuid.UUID) ([]*entity.RunRewrite, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(`SELECT seq, fragment_key, category, original, rewritten
		FROM run_rewrites WHERE run_id = ? ORDER BY seq`), runID.String())
	if err != nil {
		r.logger.Error("failed to list rewrites", "run_id", runID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.RunRewrite
	for rows.Next() {
		rw := &entity.RunRewrite{RunID: runID}
		var cat string
		if err := rows.Scan(&rw.Seq, &rw.FragmentKey, &cat, &rw.Original, &rw.Rewritten); err != nil {
			return nil, err
		}
		rw.Category = constants.Category(cat)
		out = append(out, rw)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Run, error) {
	var (
		run      entity.Run
		id       string
		status   string
		errMsg   sql.NullString
		started  string
		finished sql.NullString
	)
	err := s.Scan(&id, &run.Source, &status, &run.Fragments, &run.LocalClassified, &run.RemoteClassified,
		&run.Fallback, &run.DroppedItems, &run.Planned, &run.Applied, &errMsg, &started, &finished)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", id, err)
	}
	run.Status = constants.RunStatus(status)
	if errMsg.Valid {
		msg := errMsg.String
		run.ErrorMessage = &msg
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("bad started_at %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("bad finished_at %q: %w", finished.String, err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
