package openai

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

const systemPromptSV = `Du klassificerar text från PowerPoint-shapes i konsultpresentationer.
Varje shape har ett "id" och antingen "text" eller "paragraphs" (en array av stycken).

Kategorier:
- title: Huvudrubrik på en slide
- body: Beskrivande text, punktlistor, aktiviteter, KPI:er, affärsmål, strategier
- name: Personnamn eller rollreferenser
- label_value: "Etikett: Värde"-mönster (ange label-delen i "label"-fältet)
- table_header: Strukturella kolumn-/radrubriker (t.ex. "Aktivitet", "Status", "Ansvarig")
- keep: ENBART helt generiska enstaka ord som "Syfte", "Mål", "Agenda"

VIKTIGT: Använd keep SPARSAMT. De flesta shapes innehåller specifikt innehåll.

Svara ENBART med JSON i formatet:
{ "classifications": [
  { "id": 0, "category": "title" },
  { "id": 1, "category": "label_value", "label": "Driver" },
  { "id": 2, "category": "keep" }
] }`

const systemPromptEN = `You classify text from PowerPoint shapes in consulting presentations.
Each shape has an "id" and either "text" or "paragraphs" (an array of paragraphs).

Categories:
- title: The main heading of a slide
- body: Descriptive text, bullet lists, activities, KPIs, business goals, strategies
- name: Person names or role references
- label_value: "Label: Value" patterns (put the label part in the "label" field)
- table_header: Structural column/row headings (e.g. "Activity", "Status", "Owner")
- keep: ONLY fully generic single words such as "Purpose", "Goals", "Agenda"

IMPORTANT: Use keep SPARINGLY. Most shapes contain specific content.

Reply with JSON ONLY, in the format:
{ "classifications": [
  { "id": 0, "category": "title" },
  { "id": 1, "category": "label_value", "label": "Driver" },
  { "id": 2, "category": "keep" }
] }`

func buildSystemPrompt(locale string) string {
	if strings.EqualFold(locale, "en") {
		return systemPromptEN
	}
	return systemPromptSV
}

func buildUserPrompt(locale string, req llm.ClassifyRequest) string {
	var b strings.Builder
	if strings.EqualFold(locale, "en") {
		b.WriteString("Classify the following shapes:\n\n")
	} else {
		b.WriteString("Klassificera följande shapes:\n\n")
	}
	b.WriteString("[")
	for i, s := range req.Shapes {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString(mustJSON(s))
	}
	b.WriteString("]")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// stripThinkBlock removes a <think>...</think> block some reasoning models
// emit before the answer.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
