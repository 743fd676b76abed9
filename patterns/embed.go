// Package patterns provides the embedded locale packs: the ordered local
// pattern list, the section-heading word list and the per-category
// placeholders.
package patterns

import _ "embed"

//go:embed sv.yaml
var svYAML []byte

//go:embed en.yaml
var enYAML []byte
