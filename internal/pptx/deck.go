// Package pptx reads and writes the text of .pptx presentations directly
// from the OOXML package, exposing it as a pipeline document port.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
	slideRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
)

var ErrNotPresentation = errors.New("not a presentation package")

// Formatting is the handle attached to every extracted fragment: the slide
// part it came from and the number of text runs in each paragraph.
type Formatting struct {
	Part string
	Runs []int
}

// Deck is an in-memory .pptx package. Untouched parts are written back
// byte for byte.
type Deck struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	files   []*zip.File
	slides  []string          // slide part names in presentation order
	changed map[string][]byte // rewritten parts
}

// Open reads a .pptx file into memory.
func Open(path string, logger *slog.Logger) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Load(path, data, logger)
}

// Load parses a .pptx package held in memory. name is reported by Name.
func Load(name string, data []byte, logger *slog.Logger) (*Deck, error) {
	if logger == nil {
		logger = slog.Default()
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotPresentation, name, err)
	}
	d := &Deck{
		name:    name,
		logger:  logger,
		files:   zr.File,
		changed: map[string][]byte{},
	}
	if d.slides, err = d.slideOrder(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("pptx.open", "name", name, "slides", len(d.slides), "parts", len(zr.File))
	return d, nil
}

func (d *Deck) Name() string { return d.name }

// SlideCount returns the number of slides listed by the presentation.
func (d *Deck) SlideCount() int { return len(d.slides) }

// Dirty reports whether any slide has been rewritten.
func (d *Deck) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.changed) > 0
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

func (d *Deck) slideOrder() ([]string, error) {
	presData, err := d.readPart(presentationPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPresentation, err)
	}
	relsData, err := d.readPart(presentationRels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPresentation, err)
	}

	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, fmt.Errorf("parse %s: %w", presentationPart, err)
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(relsData, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", presentationRels, err)
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		if r.Type != slideRelType || strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		targets[r.ID] = resolveTarget(r.Target)
	}

	slides := make([]string, 0, len(pres.SlideIDs))
	for _, s := range pres.SlideIDs {
		target, ok := targets[s.RID]
		if !ok {
			d.logger.Warn("pptx.slide.unresolved", "name", d.name, "rel_id", s.RID)
			continue
		}
		slides = append(slides, target)
	}
	return slides, nil
}

func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("ppt", target)
}

func (d *Deck) file(name string) *zip.File {
	for _, f := range d.files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (d *Deck) readPart(name string) ([]byte, error) {
	if data, ok := d.changed[name]; ok {
		return data, nil
	}
	f := d.file(name)
	if f == nil {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (d *Deck) parseSlideAt(i int) ([]located, error) {
	data, err := d.readPart(d.slides[i])
	if err != nil {
		return nil, err
	}
	return parseSlide(data, i)
}

// ListFragments extracts every non-blank text body from the deck.
func (d *Deck) ListFragments(ctx context.Context) (fragment.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := fragment.Snapshot{Slides: make([]fragment.Slide, 0, len(d.slides))}
	for i, part := range d.slides {
		if err := ctx.Err(); err != nil {
			return fragment.Snapshot{}, err
		}
		locs, err := d.parseSlideAt(i)
		if err != nil {
			return fragment.Snapshot{}, err
		}
		sl := fragment.Slide{Index: i}
		for _, l := range locs {
			text := l.body.text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			sl.Fragments = append(sl.Fragments, fragment.Fragment{
				ID:         l.id,
				Source:     l.source,
				Text:       text,
				Formatting: Formatting{Part: part, Runs: l.body.runCounts()},
			})
		}
		snap.Slides = append(snap.Slides, sl)
	}
	d.logger.Debug("pptx.list_fragments", "name", d.name, "slides", len(snap.Slides), "fragments", snap.Len())
	return snap, nil
}

// ApplyRewrites splices rewritten text into the slide parts. A rewrite whose
// fragment cannot be located, or whose body has no text run, is skipped and
// not counted.
func (d *Deck) ApplyRewrites(ctx context.Context, rewrites []fragment.Rewrite) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bySlide := map[int][]fragment.Rewrite{}
	var order []int
	for _, rw := range rewrites {
		if _, ok := bySlide[rw.ID.Slide]; !ok {
			order = append(order, rw.ID.Slide)
		}
		bySlide[rw.ID.Slide] = append(bySlide[rw.ID.Slide], rw)
	}

	applied := 0
	for _, si := range order {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		rws := bySlide[si]
		if si < 0 || si >= len(d.slides) {
			d.logger.Warn("pptx.apply.unknown_slide", "name", d.name, "slide", si, "rewrites", len(rws))
			continue
		}
		locs, err := d.parseSlideAt(si)
		if err != nil {
			d.logger.Warn("pptx.apply.parse_failed", "name", d.name, "slide", si, "error", err)
			continue
		}
		index := make(map[fragment.Identity]located, len(locs))
		for _, l := range locs {
			index[l.id] = l
		}

		var edits []edit
		for _, rw := range rws {
			loc, ok := index[rw.ID]
			if !ok {
				d.logger.Warn("pptx.apply.not_found", "name", d.name, "key", rw.ID.Key())
				continue
			}
			e, ok := planEdits(loc.body, rw.Text)
			if !ok {
				d.logger.Warn("pptx.apply.no_runs", "name", d.name, "key", rw.ID.Key())
				continue
			}
			edits = append(edits, e...)
			for _, m := range loc.mirrors {
				if me, ok := planEdits(m, rw.Text); ok {
					edits = append(edits, me...)
				}
			}
			applied++
		}
		if len(edits) == 0 {
			continue
		}
		data, err := d.readPart(d.slides[si])
		if err != nil {
			return applied, err
		}
		d.changed[d.slides[si]] = applyEdits(data, edits)
	}
	d.logger.Info("pptx.apply.ok", "name", d.name, "rewrites", len(rewrites), "applied", applied)
	return applied, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the package. Unchanged entries are copied without
// recompression.
func (d *Deck) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, f := range d.files {
		data, ok := d.changed[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return cw.n, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return cw.n, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("close zip: %w", err)
	}
	return cw.n, nil
}

// Save writes the package to path through a temporary file in the same
// directory.
func (d *Deck) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".deck-*.pptx.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := d.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	d.logger.Info("pptx.save", "name", d.name, "path", path)
	return nil
}

// OutputPath derives the default output path: deck.pptx -> deck.anon.pptx.
func OutputPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + constants.AnonymizedSuffix + ext
}

// IsOutput reports whether path looks like a file written by OutputPath.
func IsOutput(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasSuffix(strings.TrimSuffix(path, ext), constants.AnonymizedSuffix)
}
