package extract

import (
	"strings"

	"lexgraph/internal/types"
)

// enrichContext fills context_before/context_after with up to window
// runes on each side of the entity span. Positions are rune offsets into
// the document text; entities without sound positions are left alone
// (they are filtered before this point).
func enrichContext(docRunes []rune, entities []types.Entity, window int) {
	if window <= 0 {
		return
	}
	n := len(docRunes)
	for i := range entities {
		e := &entities[i]
		if e.StartPos < 0 || e.EndPos > n || e.EndPos < e.StartPos {
			continue
		}
		before := e.StartPos - window
		if before < 0 {
			before = 0
		}
		after := e.EndPos + window
		if after > n {
			after = n
		}
		e.ContextBefore = string(docRunes[before:e.StartPos])
		e.ContextAfter = string(docRunes[e.EndPos:after])
	}
}

// soundPositions keeps entities whose span lies inside the document with
// start <= end and whose text equals the spanned document text up to
// whitespace normalization, and counts the rest. Position abuse from the
// backend is dropped here rather than surfacing impossible offsets or
// mislabeled spans to callers.
func soundPositions(docRunes []rune, entities []types.Entity) ([]types.Entity, int) {
	n := len(docRunes)
	kept := entities[:0]
	dropped := 0
	for _, e := range entities {
		if e.StartPos < 0 || e.EndPos < e.StartPos || e.EndPos > n {
			dropped++
			continue
		}
		if normalizeSpace(string(docRunes[e.StartPos:e.EndPos])) != normalizeSpace(e.Text) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
