package fragment

import (
	"fmt"
	"strconv"
	"strings"
)

// Opt is an optional non-negative coordinate. The zero value is "absent",
// which is distinct from a present zero.
type Opt struct {
	Value int
	Set   bool
}

// Some returns a present coordinate.
func Some(v int) Opt { return Opt{Value: v, Set: true} }

// None is the absent coordinate.
var None = Opt{}

func (o Opt) String() string {
	if !o.Set {
		return "-"
	}
	return strconv.Itoa(o.Value)
}

// Identity locates one fragment inside an extraction snapshot. It is
// comparable and can be used as a map key directly.
type Identity struct {
	Slide      int
	Shape      int
	GroupChild Opt
	Row        Opt
	Col        Opt
}

// Text identifies a top-level text shape.
func Text(slide, shape int) Identity {
	return Identity{Slide: slide, Shape: shape}
}

// Group identifies a text shape nested in a group.
func Group(slide, shape, child int) Identity {
	return Identity{Slide: slide, Shape: shape, GroupChild: Some(child)}
}

// Cell identifies a cell of a top-level table.
func Cell(slide, shape, row, col int) Identity {
	return Identity{Slide: slide, Shape: shape, Row: Some(row), Col: Some(col)}
}

// GroupCell identifies a cell of a table nested in a group.
func GroupCell(slide, shape, child, row, col int) Identity {
	return Identity{Slide: slide, Shape: shape, GroupChild: Some(child), Row: Some(row), Col: Some(col)}
}

// IsTableCell reports whether the identity addresses a table cell.
func (id Identity) IsTableCell() bool { return id.Row.Set }

// IsHeaderRow reports whether the identity addresses a cell in row 0.
func (id Identity) IsHeaderRow() bool { return id.Row.Set && id.Row.Value == 0 }

// InGroup reports whether the identity addresses a group child.
func (id Identity) InGroup() bool { return id.GroupChild.Set }

// Key renders the identity as a string. Absent coordinates are omitted and
// present ones are tagged, so the mapping is injective:
//
//	0:1        text shape
//	0:1:g0     group child 0
//	0:1:r0c2   table cell
//	0:1:g2:r1c0
func (id Identity) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(id.Slide))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(id.Shape))
	if id.GroupChild.Set {
		b.WriteString(":g")
		b.WriteString(strconv.Itoa(id.GroupChild.Value))
	}
	if id.Row.Set {
		b.WriteString(":r")
		b.WriteString(strconv.Itoa(id.Row.Value))
		b.WriteByte('c')
		b.WriteString(strconv.Itoa(id.Col.Value))
	}
	return b.String()
}

func (id Identity) String() string { return id.Key() }

// ParseKey is the inverse of Key.
func ParseKey(key string) (Identity, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Identity{}, fmt.Errorf("parse key %q: expected 2-4 segments", key)
	}
	var id Identity
	var err error
	if id.Slide, err = parseIndex(parts[0]); err != nil {
		return Identity{}, fmt.Errorf("parse key %q: slide: %w", key, err)
	}
	if id.Shape, err = parseIndex(parts[1]); err != nil {
		return Identity{}, fmt.Errorf("parse key %q: shape: %w", key, err)
	}
	rest := parts[2:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "g") {
		child, err := parseIndex(rest[0][1:])
		if err != nil {
			return Identity{}, fmt.Errorf("parse key %q: group child: %w", key, err)
		}
		id.GroupChild = Some(child)
		rest = rest[1:]
	}
	if len(rest) > 0 {
		seg := rest[0]
		c := strings.IndexByte(seg, 'c')
		if !strings.HasPrefix(seg, "r") || c < 0 {
			return Identity{}, fmt.Errorf("parse key %q: bad cell segment %q", key, seg)
		}
		row, err := parseIndex(seg[1:c])
		if err != nil {
			return Identity{}, fmt.Errorf("parse key %q: row: %w", key, err)
		}
		col, err := parseIndex(seg[c+1:])
		if err != nil {
			return Identity{}, fmt.Errorf("parse key %q: col: %w", key, err)
		}
		id.Row, id.Col = Some(row), Some(col)
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return Identity{}, fmt.Errorf("parse key %q: trailing segments", key)
	}
	return id, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index %d", n)
	}
	return n, nil
}

// Less orders identities by slide, shape, group child, row, col. Absent
// coordinates sort before present ones.
func (id Identity) Less(other Identity) bool {
	if id.Slide != other.Slide {
		return id.Slide < other.Slide
	}
	if id.Shape != other.Shape {
		return id.Shape < other.Shape
	}
	if c := compareOpt(id.GroupChild, other.GroupChild); c != 0 {
		return c < 0
	}
	if c := compareOpt(id.Row, other.Row); c != 0 {
		return c < 0
	}
	return compareOpt(id.Col, other.Col) < 0
}

func compareOpt(a, b Opt) int {
	switch {
	case !a.Set && !b.Set:
		return 0
	case !a.Set:
		return -1
	case !b.Set:
		return 1
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	}
	return 0
}
