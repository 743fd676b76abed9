package llm

import "github.com/joseph-ayodele/deck-anonymizer/constants"

// BuildEnvelopeJSONSchema describes the response envelope. Items are checked
// separately so one bad item does not sink the batch.
func BuildEnvelopeJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"classifications": map[string]any{"type": "array"},
		},
		"required": []string{"classifications"},
	}
}

// BuildItemJSONSchema describes one classification result.
func BuildItemJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "integer", "minimum": 0},
			"category": map[string]any{"type": "string", "enum": constants.AsStringSlice()},
			"label":    map[string]any{"type": "string"},
		},
		"required": []string{"id", "category"},
	}
}

// BuildResponseJSONSchema is the full response schema handed to a model as
// an output constraint.
func BuildResponseJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"classifications": map[string]any{
				"type":  "array",
				"items": BuildItemJSONSchema(),
			},
		},
		"required": []string{"classifications"},
	}
}
