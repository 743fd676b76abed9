package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

// Run represents one anonymization run for data transfer between layers.
type Run struct {
	ID               uuid.UUID           `json:"id"`
	Source           string              `json:"source"`
	Status           constants.RunStatus `json:"status"`
	Fragments        int                 `json:"fragments"`
	LocalClassified  int                 `json:"local_classified"`
	RemoteClassified int                 `json:"remote_classified"`
	Fallback         bool                `json:"fallback"`
	DroppedItems     int                 `json:"dropped_items"`
	Planned          int                 `json:"planned"`
	Applied          int                 `json:"applied"`
	ErrorMessage     *string             `json:"error_message,omitempty"`
	StartedAt        time.Time           `json:"started_at"`
	FinishedAt       *time.Time          `json:"finished_at,omitempty"`
}
