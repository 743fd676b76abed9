package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

// RunRewrite is one planned rewrite persisted with its run.
type RunRewrite struct {
	RunID       uuid.UUID          `json:"run_id"`
	Seq         int                `json:"seq"`
	FragmentKey string             `json:"fragment_key"`
	Category    constants.Category `json:"category"`
	Original    string             `json:"original"`
	Rewritten   string             `json:"rewritten"`
}
