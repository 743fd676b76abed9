package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

const deckNamespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

// TextShape renders a p:sp whose paragraphs each hold one run.
func TextShape(id int, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>`, id, id)
	for _, p := range paragraphs {
		if p == "" {
			b.WriteString(`<a:p><a:endParaRPr/></a:p>`)
			continue
		}
		fmt.Fprintf(&b, `<a:p><a:r><a:rPr lang="sv-SE"/><a:t>%s</a:t></a:r></a:p>`, xmlEscape(p))
	}
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

// BuildDeck returns a minimal .pptx package with one slide per entry; each
// entry is the shape XML placed in that slide's shape tree.
func BuildDeck(slides ...string) ([]byte, error) {
	var pres, rels strings.Builder
	pres.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	pres.WriteString(`<p:presentation ` + deckNamespaces + `><p:sldIdLst>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	rels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i := range slides {
		fmt.Fprintf(&pres, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+1)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+1, i+1)
	}
	pres.WriteString(`</p:sldIdLst></p:presentation>`)
	rels.WriteString(`</Relationships>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, body string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(body))
		return err
	}
	parts := [][2]string{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`},
		{"ppt/presentation.xml", pres.String()},
		{"ppt/_rels/presentation.xml.rels", rels.String()},
	}
	for i, body := range slides {
		parts = append(parts, [2]string{
			fmt.Sprintf("ppt/slides/slide%d.xml", i+1),
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
				`<p:sld ` + deckNamespaces + `><p:cSld><p:spTree>` +
				`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
				body + `</p:spTree></p:cSld></p:sld>`,
		})
	}
	for _, p := range parts {
		if err := write(p[0], p[1]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
