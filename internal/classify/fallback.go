package classify

import (
	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// Fallback assigns body to every item. Used when the remote classifier is
// unavailable or not configured.
func Fallback(items []fragment.Unclassified) []fragment.Classification {
	if len(items) == 0 {
		return nil
	}
	out := make([]fragment.Classification, len(items))
	for i, it := range items {
		out[i] = fragment.Classification{ID: it.ID, Category: constants.Body}
	}
	return out
}
