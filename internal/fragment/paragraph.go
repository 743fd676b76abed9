package fragment

import (
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

// SplitParagraphs splits text on the paragraph separator. An empty string is
// one empty paragraph.
func SplitParagraphs(text string) []string {
	return strings.Split(text, constants.ParagraphSeparator)
}

// JoinParagraphs is the inverse of SplitParagraphs.
func JoinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, constants.ParagraphSeparator)
}

// NonEmptyParagraphs returns the paragraphs that contain something other
// than whitespace, in order.
func NonEmptyParagraphs(text string) []string {
	var out []string
	for _, p := range SplitParagraphs(text) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
