package constants

import (
	"strings"
)

// Category is the semantic role assigned to one text fragment.
type Category string

const (
	Title        Category = "title"
	Body         Category = "body"
	Name         Category = "name"
	LabelValue   Category = "label_value"
	TableHeader  Category = "table_header"
	SectionLabel Category = "section_label"
	Email        Category = "email"
	Phone        Category = "phone"
	URL          Category = "url"
	Initials     Category = "initials"
	Date         Category = "date"
	Number       Category = "number"
	Keep         Category = "keep"
)

var allCategories = []Category{
	Title,
	Body,
	Name,
	LabelValue,
	TableHeader,
	SectionLabel,
	Email,
	Phone,
	URL,
	Initials,
	Date,
	Number,
	Keep,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Preserved reports whether fragments of this category are left untouched.
func (c Category) Preserved() bool {
	return c == Keep || c == TableHeader || c == SectionLabel
}

func (c Category) Valid() bool {
	for _, cat := range allCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Canonicalize maps a free-form category string (as returned by a model) onto
// the enum. The second result is false when nothing matched.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	// synonyms map
	synonyms := map[string]Category{
		"heading":       Title,
		"headline":      Title,
		"rubrik":        Title,
		"text":          Body,
		"paragraph":     Body,
		"bullet":        Body,
		"person":        Name,
		"role":          Name,
		"namn":          Name,
		"label":         LabelValue,
		"labelvalue":    LabelValue,
		"key_value":     LabelValue,
		"header":        TableHeader,
		"column_header": TableHeader,
		"section":       SectionLabel,
		"mail":          Email,
		"e_mail":        Email,
		"telephone":     Phone,
		"link":          URL,
		"period":        Date,
		"value":         Number,
		"amount":        Number,
		"generic":       Keep,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return "", false
}
