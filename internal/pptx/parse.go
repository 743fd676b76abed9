package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

// span is the byte range of one a:t element's content inside a slide part.
// A self-closing <a:t/> has start..end covering its "/>".
type span struct {
	start, end  int
	selfClosing bool
	qname       string
}

type paragraph struct {
	runs   []span
	breaks []span // a:br elements, whole element
	text   string
}

type textBody struct {
	paragraphs []paragraph
}

func (b *textBody) text() string {
	parts := make([]string, len(b.paragraphs))
	for i, p := range b.paragraphs {
		parts[i] = p.text
	}
	return fragment.JoinParagraphs(parts)
}

func (b *textBody) runCounts() []int {
	out := make([]int, len(b.paragraphs))
	for i, p := range b.paragraphs {
		out[i] = len(p.runs)
	}
	return out
}

// located is a text body found in a slide together with its identity.
// mirrors holds the same shape's bodies in other mc:AlternateContent
// branches; rewrites go to all of them.
type located struct {
	id      fragment.Identity
	source  fragment.Source
	body    *textBody
	mirrors []*textBody
}

// tokenizer pairs decoder tokens with the byte offsets around them.
type tokenizer struct {
	dec  *xml.Decoder
	data []byte
}

func (t *tokenizer) next() (tok xml.Token, before, after int, err error) {
	before = int(t.dec.InputOffset())
	tok, err = t.dec.Token()
	after = int(t.dec.InputOffset())
	return tok, before, after, err
}

// parseSlide walks the direct children of p:spTree. The shape index is the
// child's position among them; group and frame properties do not count.
func parseSlide(data []byte, slide int) ([]located, error) {
	t := &tokenizer{dec: xml.NewDecoder(bytes.NewReader(data)), data: data}
	for {
		tok, _, _, err := t.next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", slide, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "spTree" {
			out, err := t.parseTree(slide)
			if err != nil {
				return nil, fmt.Errorf("slide %d: %w", slide, err)
			}
			return out, nil
		}
	}
}

func isContainerProps(local string) bool {
	switch local {
	case "nvGrpSpPr", "grpSpPr", "extLst":
		return true
	}
	return false
}

func (t *tokenizer) parseTree(slide int) ([]located, error) {
	var out []located
	shape := -1
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return out, nil
		case xml.StartElement:
			if isContainerProps(el.Name.Local) {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			shape++
			member := func(el xml.StartElement) ([]located, error) {
				return t.parseTreeMember(el, slide, shape)
			}
			var locs []located
			if el.Name.Local == "AlternateContent" {
				locs, err = t.parseAlternate(member)
			} else {
				locs, err = member(el)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, locs...)
		}
	}
}

func (t *tokenizer) parseTreeMember(el xml.StartElement, slide, shape int) ([]located, error) {
	switch el.Name.Local {
	case "sp":
		body, err := t.parseShape()
		if err != nil || body == nil {
			return nil, err
		}
		return []located{{id: fragment.Text(slide, shape), source: fragment.SourceText, body: body}}, nil
	case "grpSp":
		return t.parseGroup(slide, shape)
	case "graphicFrame":
		cells, err := t.parseFrame()
		if err != nil {
			return nil, err
		}
		out := make([]located, 0, len(cells))
		for _, c := range cells {
			out = append(out, located{id: fragment.Cell(slide, shape, c.row, c.col), source: fragment.SourceTable, body: c.body})
		}
		return out, nil
	}
	return nil, t.dec.Skip()
}

func (t *tokenizer) parseGroup(slide, shape int) ([]located, error) {
	var out []located
	child := -1
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return out, nil
		case xml.StartElement:
			if isContainerProps(el.Name.Local) {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			child++
			member := func(el xml.StartElement) ([]located, error) {
				return t.parseGroupMember(el, slide, shape, child)
			}
			var locs []located
			if el.Name.Local == "AlternateContent" {
				locs, err = t.parseAlternate(member)
			} else {
				locs, err = member(el)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, locs...)
		}
	}
}

func (t *tokenizer) parseGroupMember(el xml.StartElement, slide, shape, child int) ([]located, error) {
	switch el.Name.Local {
	case "sp":
		body, err := t.parseShape()
		if err != nil || body == nil {
			return nil, err
		}
		return []located{{id: fragment.Group(slide, shape, child), source: fragment.SourceGroup, body: body}}, nil
	case "graphicFrame":
		cells, err := t.parseFrame()
		if err != nil {
			return nil, err
		}
		out := make([]located, 0, len(cells))
		for _, c := range cells {
			out = append(out, located{id: fragment.GroupCell(slide, shape, child, c.row, c.col), source: fragment.SourceTable, body: c.body})
		}
		return out, nil
	}
	// nested groups, pictures and connectors carry no fragments
	return nil, t.dec.Skip()
}

// parseAlternate reads an mc:AlternateContent element whose mc:Choice and
// mc:Fallback branches each wrap one rendition of the same shape. The first
// branch to define an identity supplies its text; the same identity in later
// branches becomes a mirror.
func (t *tokenizer) parseAlternate(member func(xml.StartElement) ([]located, error)) ([]located, error) {
	var out []located
	index := map[fragment.Identity]int{}
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return out, nil
		case xml.StartElement:
			if el.Name.Local != "Choice" && el.Name.Local != "Fallback" {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			locs, err := t.parseBranch(member)
			if err != nil {
				return nil, err
			}
			for _, l := range locs {
				if i, ok := index[l.id]; ok {
					out[i].mirrors = append(out[i].mirrors, l.body)
					continue
				}
				index[l.id] = len(out)
				out = append(out, l)
			}
		}
	}
}

// parseBranch parses the first element of an mc:Choice or mc:Fallback.
func (t *tokenizer) parseBranch(member func(xml.StartElement) ([]located, error)) ([]located, error) {
	var out []located
	seen := false
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return out, nil
		case xml.StartElement:
			if seen {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			seen = true
			if out, err = member(el); err != nil {
				return nil, err
			}
		}
	}
}

// parseShape returns the shape's text body, or nil when it has none.
func (t *tokenizer) parseShape() (*textBody, error) {
	var body *textBody
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return body, nil
		case xml.StartElement:
			if el.Name.Local == "txBody" {
				if body, err = t.parseTxBody(); err != nil {
					return nil, err
				}
				continue
			}
			if err := t.dec.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

type cell struct {
	row, col int
	body     *textBody
}

// parseFrame descends a graphic frame looking for a:tbl. Frames holding
// charts, diagrams or media yield no cells.
func (t *tokenizer) parseFrame() ([]cell, error) {
	var cells []cell
	depth := 0
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			if depth == 0 {
				return cells, nil
			}
			depth--
		case xml.StartElement:
			if el.Name.Local == "tbl" {
				tc, err := t.parseTable()
				if err != nil {
					return nil, err
				}
				cells = append(cells, tc...)
				continue
			}
			depth++
		}
	}
}

func (t *tokenizer) parseTable() ([]cell, error) {
	var cells []cell
	row := -1
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return cells, nil
		case xml.StartElement:
			if el.Name.Local != "tr" {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			row++
			rc, err := t.parseRow(row)
			if err != nil {
				return nil, err
			}
			cells = append(cells, rc...)
		}
	}
}

func (t *tokenizer) parseRow(row int) ([]cell, error) {
	var cells []cell
	col := -1
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return cells, nil
		case xml.StartElement:
			if el.Name.Local != "tc" {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			col++
			body, err := t.parseShape()
			if err != nil {
				return nil, err
			}
			if body != nil {
				cells = append(cells, cell{row: row, col: col, body: body})
			}
		}
	}
}

func (t *tokenizer) parseTxBody() (*textBody, error) {
	body := &textBody{}
	for {
		tok, _, _, err := t.next()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return body, nil
		case xml.StartElement:
			if el.Name.Local != "p" {
				if err := t.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			p, err := t.parseParagraph()
			if err != nil {
				return nil, err
			}
			body.paragraphs = append(body.paragraphs, p)
		}
	}
}

func (t *tokenizer) parseParagraph() (paragraph, error) {
	var p paragraph
	var text strings.Builder
	for {
		tok, before, _, err := t.next()
		if err != nil {
			return p, err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			p.text = text.String()
			return p, nil
		case xml.StartElement:
			switch el.Name.Local {
			case "r", "fld":
				if err := t.parseRun(&p, &text); err != nil {
					return p, err
				}
			case "br":
				text.WriteString(constants.LineBreak)
				if err := t.dec.Skip(); err != nil {
					return p, err
				}
				p.breaks = append(p.breaks, span{start: before, end: int(t.dec.InputOffset())})
			default:
				if err := t.dec.Skip(); err != nil {
					return p, err
				}
			}
		}
	}
}

func (t *tokenizer) parseRun(p *paragraph, text *strings.Builder) error {
	for {
		tok, before, after, err := t.next()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if el.Name.Local != "t" {
				if err := t.dec.Skip(); err != nil {
					return err
				}
				continue
			}
			s, content, err := t.parseT(before, after)
			if err != nil {
				return err
			}
			p.runs = append(p.runs, s)
			text.WriteString(content)
		}
	}
}

// parseT is called right after the a:t start tag spanning [before, after).
func (t *tokenizer) parseT(before, after int) (span, string, error) {
	s := span{qname: rawName(t.data[before:after])}
	if after >= 2 && string(t.data[after-2:after]) == "/>" {
		if _, _, _, err := t.next(); err != nil {
			return s, "", err
		}
		s.start, s.end, s.selfClosing = after-2, after, true
		return s, "", nil
	}
	s.start = after
	var content strings.Builder
	for {
		tok, tokBefore, _, err := t.next()
		if err != nil {
			return s, "", err
		}
		switch el := tok.(type) {
		case xml.CharData:
			content.Write(el)
		case xml.EndElement:
			s.end = tokBefore
			return s, content.String(), nil
		case xml.StartElement:
			if err := t.dec.Skip(); err != nil {
				return s, "", err
			}
		}
	}
}

// rawName returns the element name as written, prefix included.
func rawName(tag []byte) string {
	tag = bytes.TrimPrefix(tag, []byte("<"))
	if i := bytes.IndexAny(tag, " \t\r\n/>"); i >= 0 {
		tag = tag[:i]
	}
	return string(tag)
}
