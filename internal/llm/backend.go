package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// BackendClassifier runs a Backend in-process, so the pipeline can talk to a
// model directly without going through the classify service.
type BackendClassifier struct {
	backend Backend
	logger  *slog.Logger
}

func NewBackendClassifier(backend Backend, logger *slog.Logger) *BackendClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendClassifier{backend: backend, logger: logger}
}

func (b *BackendClassifier) Classify(ctx context.Context, items []fragment.Unclassified) ([]fragment.Classification, error) {
	if len(items) == 0 {
		return nil, nil
	}
	start := time.Now()
	resp, err := b.backend.ClassifyBatch(ctx, BuildRequest(items))
	if err != nil {
		if !errors.Is(err, ErrClassificationUnavailable) {
			err = fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
		}
		return nil, err
	}
	out, dropped := MapResponse(items, resp)
	b.logger.Info("llm.backend.ok",
		"items", len(items),
		"classified", len(out),
		"dropped", dropped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
