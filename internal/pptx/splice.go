package pptx

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

type edit struct {
	start, end int
	repl       []byte
}

// planEdits distributes text over body's runs. Paragraph i's text goes into
// the first run of paragraph i, the paragraph's other runs are emptied and its
// line breaks removed, so run and paragraph properties stay in place. Text for paragraphs that have
// no run, or for paragraphs beyond the body's, is appended to the nearest
// written run. The second result is false when the body has no run at all.
func planEdits(body *textBody, text string) ([]edit, bool) {
	text = strings.ReplaceAll(text, constants.LineBreak, " ")
	paras := fragment.SplitParagraphs(text)

	writes := map[int]map[int]string{} // paragraph -> run -> text
	lastPara := -1
	var pending []string
	for i, p := range body.paragraphs {
		var s string
		if i < len(paras) {
			s = paras[i]
		}
		if len(p.runs) == 0 {
			if s != "" {
				pending = append(pending, s)
			}
			continue
		}
		if len(pending) > 0 {
			s = joinNonEmpty(append(pending, s))
			pending = nil
		}
		writes[i] = map[int]string{0: s}
		for r := 1; r < len(p.runs); r++ {
			writes[i][r] = ""
		}
		lastPara = i
	}
	if lastPara < 0 {
		return nil, false
	}
	if len(paras) > len(body.paragraphs) {
		pending = append(pending, paras[len(body.paragraphs):]...)
	}
	if len(pending) > 0 {
		writes[lastPara][0] = joinNonEmpty(append([]string{writes[lastPara][0]}, pending...))
	}

	var edits []edit
	for pi, runs := range writes {
		for ri, s := range runs {
			if e, ok := runEdit(body.paragraphs[pi].runs[ri], s); ok {
				edits = append(edits, e)
			}
		}
		for _, br := range body.paragraphs[pi].breaks {
			edits = append(edits, edit{start: br.start, end: br.end})
		}
	}
	return edits, true
}

func runEdit(s span, text string) (edit, bool) {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text))
	if s.selfClosing {
		if text == "" {
			return edit{}, false
		}
		repl := append([]byte(">"), buf.Bytes()...)
		repl = append(repl, "</"+s.qname+">"...)
		return edit{start: s.start, end: s.end, repl: repl}, true
	}
	return edit{start: s.start, end: s.end, repl: buf.Bytes()}, true
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// applyEdits splices non-overlapping edits into data.
func applyEdits(data []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return data
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var out bytes.Buffer
	out.Grow(len(data))
	pos := 0
	for _, e := range edits {
		out.Write(data[pos:e.start])
		out.Write(e.repl)
		pos = e.end
	}
	out.Write(data[pos:])
	return out.Bytes()
}
