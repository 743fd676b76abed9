// Package fragment holds the value types that flow through one anonymization
// run: extracted text fragments, their classifications and the rewrites
// planned for them.
package fragment

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

var (
	ErrDuplicateIdentity = errors.New("duplicate fragment identity")
	ErrInvalidSource     = errors.New("fragment source does not match identity")
)

// Source tells where in the slide a fragment was extracted from. The
// extractor decides it once; consumers switch on it.
type Source int

const (
	SourceText Source = iota
	SourceTable
	SourceGroup
)

func (s Source) String() string {
	switch s {
	case SourceText:
		return "text"
	case SourceTable:
		return "table"
	case SourceGroup:
		return "group"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Fragment is one classifiable unit of text.
type Fragment struct {
	ID     Identity
	Source Source
	Text   string
	// Formatting is owned by the extractor and forwarded untouched.
	Formatting any
}

// IsTableCell reports whether the fragment is a table cell.
func (f Fragment) IsTableCell() bool { return f.Source == SourceTable }

// Validate checks that the source tag agrees with the identity coordinates.
func (f Fragment) Validate() error {
	id := f.ID
	if id.Slide < 0 || id.Shape < 0 {
		return fmt.Errorf("%s: %w: negative index", id.Key(), ErrInvalidSource)
	}
	if id.Row.Set != id.Col.Set {
		return fmt.Errorf("%s: %w: row and col must be set together", id.Key(), ErrInvalidSource)
	}
	switch f.Source {
	case SourceTable:
		if !id.IsTableCell() {
			return fmt.Errorf("%s: %w: table fragment without row/col", id.Key(), ErrInvalidSource)
		}
	case SourceGroup:
		if !id.InGroup() || id.IsTableCell() {
			return fmt.Errorf("%s: %w: group fragment needs a child index and no cell", id.Key(), ErrInvalidSource)
		}
	case SourceText:
		if id.InGroup() || id.IsTableCell() {
			return fmt.Errorf("%s: %w: text fragment with group or cell coordinates", id.Key(), ErrInvalidSource)
		}
	default:
		return fmt.Errorf("%s: %w: unknown source %d", id.Key(), ErrInvalidSource, int(f.Source))
	}
	return nil
}

// Slide is the ordered list of fragments extracted from one slide.
type Slide struct {
	Index     int
	Fragments []Fragment
}

// Snapshot is the result of one extraction pass.
type Snapshot struct {
	Slides []Slide
}

// Fragments flattens the snapshot in slide, then shape traversal order.
func (s Snapshot) Fragments() []Fragment {
	out := make([]Fragment, 0, s.Len())
	for _, sl := range s.Slides {
		out = append(out, sl.Fragments...)
	}
	return out
}

func (s Snapshot) Len() int {
	n := 0
	for _, sl := range s.Slides {
		n += len(sl.Fragments)
	}
	return n
}

// Validate checks every fragment and the uniqueness of identities.
func (s Snapshot) Validate() error {
	seen := make(map[Identity]struct{}, s.Len())
	for _, sl := range s.Slides {
		for _, f := range sl.Fragments {
			if f.ID.Slide != sl.Index {
				return fmt.Errorf("%s: %w: listed under slide %d", f.ID.Key(), ErrInvalidSource, sl.Index)
			}
			if err := f.Validate(); err != nil {
				return err
			}
			if _, dup := seen[f.ID]; dup {
				return fmt.Errorf("%s: %w", f.ID.Key(), ErrDuplicateIdentity)
			}
			seen[f.ID] = struct{}{}
		}
	}
	return nil
}

// Unclassified is a fragment no local rule resolved. Paragraphs holds its
// non-empty paragraphs and describes multi-paragraph shapes to the remote
// classifier.
type Unclassified struct {
	Fragment
	Paragraphs []string
}

// NewUnclassified builds the unclassified record for f.
func NewUnclassified(f Fragment) Unclassified {
	return Unclassified{Fragment: f, Paragraphs: NonEmptyParagraphs(f.Text)}
}

// Classification assigns a category to a fragment identity. Label is only
// meaningful for label_value.
type Classification struct {
	ID       Identity
	Category constants.Category
	Label    string
}

// Rewrite is the planner's output for one fragment.
type Rewrite struct {
	ID         Identity
	Category   constants.Category
	Original   string
	Text       string
	Formatting any
}

// Index builds a lookup map from classifications keyed by identity.
func Index(cls []Classification) map[Identity]Classification {
	m := make(map[Identity]Classification, len(cls))
	for _, c := range cls {
		m[c.ID] = c
	}
	return m
}
