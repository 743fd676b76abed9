package classify

import "github.com/joseph-ayodele/deck-anonymizer/internal/fragment"

// Merge unions local and remote classifications keeping at most one entry
// per identity. Local entries win; the second result counts what was
// dropped.
func Merge(local, remote []fragment.Classification) ([]fragment.Classification, int) {
	out := make([]fragment.Classification, 0, len(local)+len(remote))
	seen := make(map[fragment.Identity]struct{}, len(local)+len(remote))
	dropped := 0
	for _, set := range [][]fragment.Classification{local, remote} {
		for _, c := range set {
			if _, dup := seen[c.ID]; dup {
				dropped++
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out, dropped
}
