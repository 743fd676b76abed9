package pipeline

import (
	"context"

	"github.com/joseph-ayodele/deck-anonymizer/internal/entity"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// DocumentPort is the only way a run touches a document.
type DocumentPort interface {
	// ListFragments extracts one snapshot of the document's text.
	ListFragments(ctx context.Context) (fragment.Snapshot, error)
	// ApplyRewrites writes the rewrites back and reports how many landed.
	// Individual misses are not errors.
	ApplyRewrites(ctx context.Context, rewrites []fragment.Rewrite) (int, error)
}

// Named is implemented by ports that can describe their document, e.g. by
// file path. The name is stored with the run.
type Named interface {
	Name() string
}

// RunRecorder persists run history. Failures are logged and never fail a
// run.
type RunRecorder interface {
	StartRun(ctx context.Context, run entity.Run) error
	FinishRun(ctx context.Context, run entity.Run, rewrites []fragment.Rewrite) error
}
