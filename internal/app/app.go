// Package app wires configuration into a ready anonymization pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/classify"
	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/export"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm/openai"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm/remote"
	"github.com/joseph-ayodele/deck-anonymizer/internal/pipeline"
	"github.com/joseph-ayodele/deck-anonymizer/internal/pptx"
	"github.com/joseph-ayodele/deck-anonymizer/internal/repository"
	"github.com/joseph-ayodele/deck-anonymizer/internal/rewrite"
	"github.com/joseph-ayodele/deck-anonymizer/patterns"
)

// App holds the long-lived collaborators of the anonymize CLI.
type App struct {
	Cfg       *common.Config
	Logger    *slog.Logger
	Pack      *patterns.Pack
	Processor *pipeline.Processor
	DB        *repository.DB           // nil without DB_URL
	Runs      repository.RunRepository // nil without DB_URL
	Export    *export.Service
}

// New builds the pipeline from cfg. The remote classifier is the classify
// service when CLASSIFIER_URL is set, an in-process model client when only
// OPENAI_API_KEY is set, and absent otherwise (every unmatched fragment then
// falls back to body).
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pack, err := patterns.Resolve(cfg.Anonymizer.Locale, cfg.Anonymizer.LocaleFile)
	if err != nil {
		return nil, fmt.Errorf("locale pack: %w", err)
	}
	local, err := classify.NewLocal(pack)
	if err != nil {
		return nil, fmt.Errorf("local classifier: %w", err)
	}

	a := &App{Cfg: cfg, Logger: logger, Pack: pack}

	var recorder pipeline.RunRecorder
	if cfg.Database.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("run history: %w", err)
		}
		a.DB = db
		a.Runs = repository.NewRunRepository(db, logger)
		recorder = a.Runs
	}
	a.Export = export.NewService(a.Runs, logger)

	a.Processor = pipeline.NewProcessor(
		logger,
		pipeline.Config{RemoteTimeout: cfg.Classifier.Timeout},
		local,
		remoteClassifier(cfg, logger),
		rewrite.NewPlanner(pack),
		recorder,
	)
	logger.Info("app.ready",
		"locale", pack.Name,
		"classifier", classifierKind(cfg),
		"history", a.DB != nil,
	)
	return a, nil
}

func remoteClassifier(cfg *common.Config, logger *slog.Logger) llm.Classifier {
	switch classifierKind(cfg) {
	case "remote":
		return remote.NewClient(remote.Config{
			URL:     cfg.Classifier.URL,
			APIKey:  cfg.Classifier.APIKey,
			Timeout: cfg.Classifier.Timeout,
		}, logger)
	case "openai":
		backend := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			Locale:      cfg.Anonymizer.Locale,
		}, logger)
		return llm.NewBackendClassifier(backend, logger)
	default:
		return nil
	}
}

func classifierKind(cfg *common.Config) string {
	switch {
	case cfg.Classifier.URL != "":
		return "remote"
	case cfg.LLM.APIKey != "":
		return "openai"
	default:
		return "none"
	}
}

// Close releases the run history connection.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// FileResult is the outcome of anonymizing one file.
type FileResult struct {
	Input   string
	Output  string // empty for dry runs and failed runs
	Outcome pipeline.Outcome
}

// AnonymizeFile runs the pipeline over one deck. Unless dryRun is set the
// result is written to out (default: deck.anon.pptx next to the input), even
// when nothing needed rewriting.
func (a *App) AnonymizeFile(ctx context.Context, in, out string, dryRun bool) (FileResult, error) {
	res := FileResult{Input: in}
	if pptx.IsOutput(in) {
		return res, fmt.Errorf("%s: %w", in, errAlreadyAnonymized)
	}
	deck, err := pptx.Open(in, a.Logger)
	if err != nil {
		return res, err
	}

	if dryRun {
		res.Outcome, err = a.Processor.Plan(ctx, deck)
		return res, err
	}
	res.Outcome, err = a.Processor.Run(ctx, deck)
	if err != nil {
		return res, err
	}

	if out == "" {
		out = pptx.OutputPath(in)
	}
	if err := deck.Save(out); err != nil {
		return res, fmt.Errorf("save: %w", err)
	}
	res.Output = out
	return res, nil
}

var errAlreadyAnonymized = errors.New("file is already an anonymizer output")

// WriteReport writes the XLSX report of a result: from run history when the
// run was recorded, otherwise from the planned rewrites.
func (a *App) WriteReport(ctx context.Context, res FileResult, path string) error {
	var (
		data []byte
		err  error
	)
	if a.Runs != nil && res.Outcome.Status != constants.RunStatusRunning && res.Output != "" {
		data, err = a.Export.ExportRunXLSX(ctx, res.Outcome.RunID)
	} else {
		data, err = a.Export.WriteRewritesXLSX(res.Outcome.Planned)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
