// Package patch rewrites tuning documents in place. It never reserialises
// the XML tree: the document is an immutable byte buffer plus a list of
// non-overlapping span replacements, applied as a single ordered splice, so
// every byte not semantically changed survives bit-for-bit.
package patch

import (
	"fmt"
	"sort"
)

// Edit replaces the half-open byte range [Start, End) with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// applyEdits splices edits into doc. Edits are applied back-to-front by
// offset so earlier edits' byte ranges stay valid while later (in document
// order) ones are spliced in. Overlapping or out-of-bounds edits are a
// programming error and abort the patch.
func applyEdits(doc []byte, edits []Edit) ([]byte, error) {
	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	for i, e := range ordered {
		if e.Start < 0 || e.End > len(doc) || e.Start > e.End {
			return nil, fmt.Errorf("edit [%d,%d) out of bounds (document %d bytes)", e.Start, e.End, len(doc))
		}
		if i > 0 && e.End > ordered[i-1].Start {
			return nil, fmt.Errorf("edit [%d,%d) overlaps edit at %d", e.Start, e.End, ordered[i-1].Start)
		}
	}

	out := doc
	for _, e := range ordered {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Text))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Text...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out, nil
}
