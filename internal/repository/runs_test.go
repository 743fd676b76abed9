package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/entity"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "runs.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectPostgres, DialectFor("postgres://u:p@localhost/db"))
	assert.Equal(t, DialectPostgres, DialectFor("postgresql://localhost/db"))
	assert.Equal(t, DialectSQLite, DialectFor("./data/runs.db"))
	assert.Equal(t, DialectSQLite, DialectFor(":memory:"))
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	lite := &DB{dialect: DialectSQLite}
	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	require.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.HealthCheck(ctx, time.Second))
	repo := NewRunRepository(db, nil)

	id := uuid.New()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.StartRun(ctx, entity.Run{
		ID: id, Source: "deck.pptx", Status: constants.RunStatusRunning, StartedAt: started,
	}))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, started.Equal(got.StartedAt))

	finished := started.Add(3 * time.Second)
	msg := "partial"
	rewrites := []fragment.Rewrite{
		{ID: fragment.Text(0, 1), Category: constants.Email, Original: "anna@firma.se", Text: "[email]"},
		{ID: fragment.Cell(1, 2, 1, 0), Category: constants.Body, Original: "Anna", Text: "[...]"},
	}
	require.NoError(t, repo.FinishRun(ctx, entity.Run{
		ID: id, Source: "deck.pptx", Status: constants.RunStatusApplied,
		Fragments: 5, LocalClassified: 3, RemoteClassified: 1, Fallback: true,
		DroppedItems: 1, Planned: 2, Applied: 2, ErrorMessage: &msg,
		StartedAt: started, FinishedAt: &finished,
	}, rewrites))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusApplied, got.Status)
	assert.Equal(t, 5, got.Fragments)
	assert.Equal(t, 3, got.LocalClassified)
	assert.Equal(t, 1, got.RemoteClassified)
	assert.True(t, got.Fallback)
	assert.Equal(t, 1, got.DroppedItems)
	assert.Equal(t, 2, got.Planned)
	assert.Equal(t, 2, got.Applied)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "partial", *got.ErrorMessage)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))

	rws, err := repo.ListRewrites(ctx, id)
	require.NoError(t, err)
	require.Len(t, rws, 2)
	assert.Equal(t, 0, rws[0].Seq)
	assert.Equal(t, "0:1", rws[0].FragmentKey)
	assert.Equal(t, constants.Email, rws[0].Category)
	assert.Equal(t, "[email]", rws[0].Rewritten)
	assert.Equal(t, "1:2:r1c0", rws[1].FragmentKey)
	assert.Equal(t, id, rws[1].RunID)
}

func TestFinishRunReplacesRewrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)
	id := uuid.New()
	rw := fragment.Rewrite{ID: fragment.Text(0, 0), Category: constants.Body, Original: "a", Text: "[Text]"}

	// FinishRun without StartRun still creates the row
	require.NoError(t, repo.FinishRun(ctx, entity.Run{ID: id, Status: constants.RunStatusApplied}, []fragment.Rewrite{rw, rw}))
	require.NoError(t, repo.FinishRun(ctx, entity.Run{ID: id, Status: constants.RunStatusApplied}, []fragment.Rewrite{rw}))

	rws, err := repo.ListRewrites(ctx, id)
	require.NoError(t, err)
	assert.Len(t, rws, 1)
}

func TestGetMissingRun(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, repo.StartRun(ctx, entity.Run{
			ID: id, Status: constants.RunStatusRunning, StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	two, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}
