package patterns

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
)

// DefaultLocale is the pack used when no locale is configured.
const DefaultLocale = "sv"

// TableCellKey is the placeholder key for collapsed table cells.
const TableCellKey = "table_cell"

// Pack is one locale's rule set.
type Pack struct {
	Name          string            `yaml:"name"`
	Patterns      []Pattern         `yaml:"patterns"`
	SectionLabels []string          `yaml:"section_labels"`
	Placeholders  map[string]string `yaml:"placeholders"`
}

// Pattern is a single anchored text-shape rule.
type Pattern struct {
	Category constants.Category `yaml:"category"`
	Regex    string             `yaml:"regex"`
}

// Parse parses locale YAML bytes into a Pack.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing locale YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load returns the embedded pack for a locale name. An empty name selects the
// default locale.
func Load(name string) (*Pack, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DefaultLocale:
		return Parse(svYAML)
	case "en":
		return Parse(enYAML)
	default:
		return nil, fmt.Errorf("unknown locale %q", name)
	}
}

// LoadFile reads a locale pack from disk.
func LoadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading locale file %s: %w", path, err)
	}
	return Parse(data)
}

// Resolve loads the named embedded pack and overlays the file at
// overridePath when one is given.
func Resolve(name, overridePath string) (*Pack, error) {
	base, err := Load(name)
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return base, nil
	}
	override, err := LoadFile(overridePath)
	if err != nil {
		return nil, err
	}
	return Merge(base, override), nil
}

// Validate rejects packs that reference unknown categories.
func (p *Pack) Validate() error {
	for i, pat := range p.Patterns {
		if !pat.Category.Valid() {
			return fmt.Errorf("pattern %d: unknown category %q", i, pat.Category)
		}
		if strings.TrimSpace(pat.Regex) == "" {
			return fmt.Errorf("pattern %d (%s): empty regex", i, pat.Category)
		}
	}
	for key := range p.Placeholders {
		if key == TableCellKey {
			continue
		}
		if !constants.Category(key).Valid() {
			return fmt.Errorf("placeholder for unknown category %q", key)
		}
	}
	return nil
}

// Placeholder returns the fixed replacement for a category.
func (p *Pack) Placeholder(c constants.Category) (string, bool) {
	s, ok := p.Placeholders[string(c)]
	return s, ok
}

// TableCell returns the collapsed table-cell marker.
func (p *Pack) TableCell() string {
	if s, ok := p.Placeholders[TableCellKey]; ok {
		return s
	}
	return "[...]"
}

// Merge overlays override onto base. Patterns are replaced per category in
// place and new categories appended; section labels and placeholders from the
// override win.
func Merge(base, override *Pack) *Pack {
	if override == nil {
		return base
	}
	out := &Pack{
		Name:          base.Name,
		Patterns:      append([]Pattern(nil), base.Patterns...),
		SectionLabels: append([]string(nil), base.SectionLabels...),
		Placeholders:  make(map[string]string, len(base.Placeholders)),
	}
	if override.Name != "" {
		out.Name = override.Name
	}
	for k, v := range base.Placeholders {
		out.Placeholders[k] = v
	}
	for k, v := range override.Placeholders {
		out.Placeholders[k] = v
	}
	if len(override.SectionLabels) > 0 {
		out.SectionLabels = append([]string(nil), override.SectionLabels...)
	}

	index := make(map[constants.Category]int, len(out.Patterns))
	for i, pat := range out.Patterns {
		index[pat.Category] = i
	}
	for _, pat := range override.Patterns {
		if i, ok := index[pat.Category]; ok {
			out.Patterns[i] = pat
			continue
		}
		index[pat.Category] = len(out.Patterns)
		out.Patterns = append(out.Patterns, pat)
	}
	return out
}
