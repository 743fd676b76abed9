package llm

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// ErrClassificationUnavailable marks a batch that could not be classified
// remotely. Callers recover by falling back to the default classification.
var ErrClassificationUnavailable = errors.New("classification unavailable")

// Classifier is the interface the pipeline depends on. A non-nil error means
// the whole batch failed.
type Classifier interface {
	Classify(ctx context.Context, items []fragment.Unclassified) ([]fragment.Classification, error)
}

// Backend classifies a wire-level batch. The classify service serves one.
type Backend interface {
	ClassifyBatch(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
}
