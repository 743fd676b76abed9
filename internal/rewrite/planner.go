// Package rewrite turns classified fragments into replacement text.
package rewrite

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/patterns"
)

// Planner computes rewrites from a locale's placeholders. It holds no
// mutable state.
type Planner struct {
	pack *patterns.Pack
}

func NewPlanner(pack *patterns.Pack) *Planner {
	return &Planner{pack: pack}
}

// Plan emits one Rewrite per fragment whose classification produces text
// different from the original, in input order. Fragments without a
// classification are skipped.
func (p *Planner) Plan(fragments []fragment.Fragment, cls []fragment.Classification) []fragment.Rewrite {
	byID := fragment.Index(cls)
	var out []fragment.Rewrite
	for _, f := range fragments {
		c, ok := byID[f.ID]
		if !ok {
			continue
		}
		text, ok := p.Rewrite(f, c)
		if !ok {
			continue
		}
		out = append(out, fragment.Rewrite{
			ID:         f.ID,
			Category:   c.Category,
			Original:   f.Text,
			Text:       text,
			Formatting: f.Formatting,
		})
	}
	return out
}

// Rewrite applies the category policy to one fragment. The second result is
// false when nothing should be written back, including when the computed
// text equals the original.
func (p *Planner) Rewrite(f fragment.Fragment, c fragment.Classification) (string, bool) {
	if c.Category.Preserved() {
		return "", false
	}

	var text string
	switch {
	case f.IsTableCell():
		text = p.pack.TableCell()
	case c.Category == constants.Body:
		text = p.body(f.Text)
	case c.Category == constants.LabelValue:
		text = p.labelValue(f.Text, c.Label)
	default:
		ph, ok := p.pack.Placeholder(c.Category)
		if !ok {
			return "", false
		}
		text = ph
	}

	if text == f.Text {
		return "", false
	}
	return text, true
}

func (p *Planner) body(original string) string {
	ph, _ := p.pack.Placeholder(constants.Body)
	paragraphs := fragment.SplitParagraphs(original)
	for i, para := range paragraphs {
		if strings.TrimSpace(para) == "" {
			paragraphs[i] = ""
		} else {
			paragraphs[i] = ph
		}
	}
	return fragment.JoinParagraphs(paragraphs)
}

func (p *Planner) labelValue(original, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		ph, _ := p.pack.Placeholder(constants.Body)
		return ph
	}
	name, _ := p.pack.Placeholder(constants.LabelValue)
	re := regexp.MustCompile(`(?i)^(` + regexp.QuoteMeta(label) + `[\s\p{Zs}]*[:;][\s\p{Zs}]*)`)
	if m := re.FindStringSubmatch(original); m != nil {
		return m[1] + name
	}
	return label + ": " + name
}
