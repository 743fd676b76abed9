package llm

import (
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// ShapeItem is one entry of the remote batch. Exactly one of Text and
// Paragraphs is set.
type ShapeItem struct {
	ID         int      `json:"id"`
	Text       *string  `json:"text,omitempty"`
	Paragraphs []string `json:"paragraphs,omitempty"`
}

type ClassifyRequest struct {
	Shapes []ShapeItem `json:"shapes"`
}

type ResultItem struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
	Label    string `json:"label,omitempty"`
}

type ClassifyResponse struct {
	Classifications []ResultItem `json:"classifications"`
}

// BuildRequest numbers items by their position in the batch. Items with two
// or more non-empty paragraphs are sent as paragraphs, everything else as
// text.
func BuildRequest(items []fragment.Unclassified) ClassifyRequest {
	req := ClassifyRequest{Shapes: make([]ShapeItem, len(items))}
	for i, it := range items {
		shape := ShapeItem{ID: i}
		if len(it.Paragraphs) >= 2 {
			shape.Paragraphs = append([]string(nil), it.Paragraphs...)
		} else {
			text := it.Text
			shape.Text = &text
		}
		req.Shapes[i] = shape
	}
	return req
}

// MapResponse joins results back to fragment identities by batch position.
// Out-of-range ids, repeated ids and unknown categories are dropped one by
// one; the first result for an id wins.
func MapResponse(items []fragment.Unclassified, resp ClassifyResponse) ([]fragment.Classification, int) {
	out := make([]fragment.Classification, 0, len(resp.Classifications))
	seen := make(map[int]struct{}, len(resp.Classifications))
	dropped := 0
	for _, r := range resp.Classifications {
		if r.ID < 0 || r.ID >= len(items) {
			dropped++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			dropped++
			continue
		}
		cat, ok := constants.Canonicalize(r.Category)
		if !ok {
			dropped++
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, fragment.Classification{
			ID:       items[r.ID].ID,
			Category: cat,
			Label:    strings.TrimSpace(r.Label),
		})
	}
	return out, dropped
}
