package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/pptx"
	"github.com/joseph-ayodele/deck-anonymizer/internal/testutil"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.LoadConfig()
	cfg.Anonymizer.Locale = "sv"
	cfg.Anonymizer.LocaleFile = ""
	cfg.Classifier.URL = ""
	cfg.LLM.APIKey = ""
	cfg.Database.DSN = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func writeDeck(t *testing.T, dir string, slides ...string) string {
	t.Helper()
	data, err := testutil.BuildDeck(slides...)
	require.NoError(t, err)
	path := filepath.Join(dir, "deck.pptx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newApp(t *testing.T, cfg *common.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAnonymizeFileWithHistoryAndReport(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t))
	dir := t.TempDir()
	in := writeDeck(t, dir,
		testutil.TextShape(2, "anna.berg@firma.se")+testutil.TextShape(3, "Vi levererar en ny plattform"),
	)

	res, err := a.AnonymizeFile(ctx, in, "", false)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusApplied, res.Outcome.Status)
	assert.Equal(t, pptx.OutputPath(in), res.Output)
	assert.True(t, res.Outcome.Fallback)

	out, err := pptx.Open(res.Output, testutil.DiscardLogger())
	require.NoError(t, err)
	snap, err := out.ListFragments(ctx)
	require.NoError(t, err)
	frags := snap.Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, "[email]", frags[0].Text)
	assert.NotEqual(t, "Vi levererar en ny plattform", frags[1].Text)

	run, err := a.Runs.Get(ctx, res.Outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusApplied, run.Status)
	assert.Equal(t, in, run.Source)
	assert.Equal(t, 2, run.Applied)

	report := filepath.Join(dir, "report.xlsx")
	require.NoError(t, a.WriteReport(ctx, res, report))
	f, err := excelize.OpenFile(report)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Rewrites")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestAnonymizeFileDryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.DSN = ""
	a := newApp(t, cfg)
	dir := t.TempDir()
	in := writeDeck(t, dir, testutil.TextShape(2, "anna.berg@firma.se"))

	res, err := a.AnonymizeFile(context.Background(), in, "", true)
	require.NoError(t, err)
	assert.Empty(t, res.Output)
	require.Len(t, res.Outcome.Planned, 1)
	assert.NoFileExists(t, pptx.OutputPath(in))
	assert.Nil(t, a.Runs)

	report := filepath.Join(dir, "plan.xlsx")
	require.NoError(t, a.WriteReport(context.Background(), res, report))
	assert.FileExists(t, report)
}

func TestAnonymizeFileRefusesOwnOutput(t *testing.T) {
	a := newApp(t, testConfig(t))
	_, err := a.AnonymizeFile(context.Background(), "deck.anon.pptx", "", false)
	require.ErrorIs(t, err, errAlreadyAnonymized)
}

func TestRemoteClassifierSelection(t *testing.T) {
	model := testutil.NewChatCompletionServer(`{"classifications":[{"id":0,"category":"keep"}]}`, http.StatusOK)
	t.Cleanup(model.Close)

	cfg := testConfig(t)
	cfg.Database.DSN = ""
	cfg.LLM.APIKey = "k"
	cfg.LLM.BaseURL = model.URL + "/v1"
	a := newApp(t, cfg)
	assert.Equal(t, "openai", classifierKind(cfg))

	in := writeDeck(t, t.TempDir(), testutil.TextShape(2, "Vi levererar en ny plattform"))
	res, err := a.AnonymizeFile(context.Background(), in, "", false)
	require.NoError(t, err)
	assert.False(t, res.Outcome.Fallback)
	assert.Equal(t, 1, res.Outcome.RemoteClassified)
	assert.Equal(t, constants.RunStatusNothingToRewrite, res.Outcome.Status)
	assert.FileExists(t, res.Output)
	assert.Len(t, model.Requests(), 1)

	cfg.Classifier.URL = "http://classify.local/v1/classify"
	assert.Equal(t, "remote", classifierKind(cfg))
}
