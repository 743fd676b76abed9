package llm

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

// NormalizeItem rewrites one decoded result item in place so near-misses
// still validate: category synonyms and casing are canonicalized, numeric
// string ids are converted, labels are trimmed and empty labels removed.
// Values it cannot fix are left for the schema to reject.
func NormalizeItem(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		return
	}

	if s, ok := m["id"].(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			m["id"] = float64(n)
		}
	}
	if f, ok := m["id"].(float64); ok && f != math.Trunc(f) {
		delete(m, "id")
	}

	if s, ok := m["category"].(string); ok {
		if cat, ok := constants.Canonicalize(s); ok {
			m["category"] = string(cat)
		}
	}

	switch label := m["label"].(type) {
	case string:
		if t := strings.TrimSpace(label); t != "" {
			m["label"] = t
		} else {
			delete(m, "label")
		}
	case nil:
		delete(m, "label")
	}
}
