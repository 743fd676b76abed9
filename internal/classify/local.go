// Package classify holds the deterministic side of classification: the
// local rule set, the default fallback and the merge of local and remote
// results.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/patterns"
)

type rule struct {
	category constants.Category
	re       *regexp.Regexp
}

// Local classifies fragments with anchored patterns and structural table
// rules. It is safe for concurrent use.
type Local struct {
	rules    []rule
	sections map[string]struct{}
}

// Result partitions one snapshot's fragments.
type Result struct {
	Classified   []fragment.Classification
	Unclassified []fragment.Unclassified
}

// NewLocal compiles a locale pack. Every pattern is anchored to the whole
// string regardless of how it is written in the pack.
func NewLocal(pack *patterns.Pack) (*Local, error) {
	if pack == nil {
		return nil, fmt.Errorf("classify: nil locale pack")
	}
	l := &Local{
		rules:    make([]rule, 0, len(pack.Patterns)),
		sections: make(map[string]struct{}, len(pack.SectionLabels)),
	}
	for _, p := range pack.Patterns {
		re, err := regexp.Compile(`^(?:` + p.Regex + `)$`)
		if err != nil {
			return nil, fmt.Errorf("classify: compile %s pattern: %w", p.Category, err)
		}
		l.rules = append(l.rules, rule{category: p.Category, re: re})
	}
	for _, s := range pack.SectionLabels {
		l.sections[normalize(s)] = struct{}{}
	}
	return l, nil
}

func normalize(s string) string {
	return strings.ToLower(prepare(s))
}

// prepare trims, composes to NFC and folds Unicode space separators such as
// U+00A0 to ASCII space so pack patterns written with \s still match them.
func prepare(s string) string {
	return strings.Map(foldSpace, norm.NFC.String(strings.TrimSpace(s)))
}

func foldSpace(r rune) rune {
	if r != ' ' && unicode.Is(unicode.Zs, r) {
		return ' '
	}
	return r
}

// Match runs the ordered pattern list and the section-label check against
// text. The first match wins.
func (l *Local) Match(text string) (constants.Category, bool) {
	trimmed := prepare(text)
	if trimmed == "" {
		return "", false
	}
	for _, r := range l.rules {
		if r.re.MatchString(trimmed) {
			return r.category, true
		}
	}
	if _, ok := l.sections[strings.ToLower(trimmed)]; ok {
		return constants.SectionLabel, true
	}
	return "", false
}

// Classify partitions fragments into locally classified and unclassified.
// Every input fragment lands in exactly one list and input order is kept.
func (l *Local) Classify(fragments []fragment.Fragment) Result {
	var res Result
	for _, f := range fragments {
		if f.IsTableCell() {
			res.Classified = append(res.Classified, fragment.Classification{
				ID:       f.ID,
				Category: l.tableCategory(f),
			})
			continue
		}
		if cat, ok := l.Match(f.Text); ok {
			res.Classified = append(res.Classified, fragment.Classification{ID: f.ID, Category: cat})
			continue
		}
		res.Unclassified = append(res.Unclassified, fragment.NewUnclassified(f))
	}
	return res
}

func (l *Local) tableCategory(f fragment.Fragment) constants.Category {
	if f.ID.IsHeaderRow() {
		return constants.TableHeader
	}
	if cat, ok := l.Match(f.Text); ok {
		return cat
	}
	return constants.Body
}
