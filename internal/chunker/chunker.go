// Package chunker splits large legal documents into overlapping chunks
// sized for a single model context. Cut points snap to structural
// boundaries and never land inside a citation or a substantial quote.
package chunker

import (
	"sort"
	"unicode/utf8"

	"lexgraph/internal/config"
	"lexgraph/internal/logging"
	"lexgraph/internal/sizing"
	"lexgraph/internal/types"
)

// charsPerToken inverts the fast token heuristic when converting the
// token budget back into a character target.
const charsPerToken = 4

// Chunker splits documents per the configured sizing and overlap policy.
type Chunker struct {
	cfg config.ChunkingConfig
	est sizing.Estimator
}

// New builds a Chunker.
func New(cfg config.ChunkingConfig, est sizing.Estimator) *Chunker {
	if est == nil {
		est = sizing.HeuristicEstimator{}
	}
	return &Chunker{cfg: cfg, est: est}
}

// TargetChars returns the per-chunk character target derived from the
// context window: floor(window * safety) - overhead tokens, converted
// to characters and clamped to [MinChars, MaxChars].
func (c *Chunker) TargetChars() int {
	usable := int(float64(c.cfg.ContextWindowTokens)*c.cfg.SafetyFraction) - c.cfg.FixedOverheadTokens
	target := usable * charsPerToken
	if target < c.cfg.MinChars {
		target = c.cfg.MinChars
	}
	if target > c.cfg.MaxChars {
		target = c.cfg.MaxChars
	}
	return target
}

type rawChunk struct {
	start, end int // byte offsets
	kind       types.BoundaryKind
}

// Split chunks a document's text. The returned statistics describe the
// pass; FailedChunks stays zero here and is filled in by the caller.
func (c *Chunker) Split(text string) ([]types.Chunk, types.ChunkStatistics) {
	subtype := DetectSubtype(text)
	strategy := subtype.StrategyName()

	spans := detectPreservedSpans(text)
	paras := paragraphBoundaries(text)
	sents := sentenceBoundaries(text)
	var sections []int
	if strategy == "legal_aware" || strategy == "section_aware" {
		sections = sectionBoundaries(text)
	}

	target := c.TargetChars()
	raws := c.cut(text, target, strategy, spans, sections, paras, sents)

	merged := 0
	for len(raws) > c.cfg.MaxChunksPerDocument {
		raws = mergeSmallestNeighbors(raws)
		merged++
	}

	chunks := c.materialize(text, raws, strategy)

	stats := types.ChunkStatistics{
		TotalChunks:     len(chunks),
		MergedNeighbors: merged,
		BoundaryKinds:   make(map[string]int, 4),
	}
	for _, ch := range chunks {
		stats.BoundaryKinds[string(ch.BoundaryKind)]++
		stats.OverlapChars += ch.OverlapBeforeChars
	}
	logging.Chunker("split: subtype=%s strategy=%s chunks=%d target=%d merged=%d overlap_chars=%d",
		subtype, strategy, len(chunks), target, merged, stats.OverlapChars)
	return chunks, stats
}

func (c *Chunker) cut(text string, target int, strategy string, spans []span, sections, paras, sents []int) []rawChunk {
	var raws []rawChunk
	start := 0
	for start < len(text) {
		candidate := start + target
		if candidate >= len(text) {
			raws = append(raws, rawChunk{start: start, end: len(text), kind: types.BoundaryRaw})
			break
		}

		end, kind := snapCut(text, candidate, start+c.cfg.MinChars, strategy, sections, paras, sents)

		// A cut strictly inside a preserved span is pushed to the span end.
		if sp, inside := spanContaining(spans, end); inside {
			end, kind = sp.end, types.BoundarySpanEnd
		}
		if end <= start {
			end = alignRune(text, candidate)
			kind = types.BoundaryRaw
		}
		if end >= len(text) {
			raws = append(raws, rawChunk{start: start, end: len(text), kind: kind})
			break
		}
		raws = append(raws, rawChunk{start: start, end: end, kind: kind})

		next := c.overlapStart(text, start, end)
		start = next
	}
	return raws
}

// snapCut moves a candidate cut back to the best structural boundary in
// [lowerBound, candidate]. Priority depends on the strategy; everything
// falls through to a word boundary and finally the raw position.
func snapCut(text string, candidate, lowerBound int, strategy string, sections, paras, sents []int) (int, types.BoundaryKind) {
	if lowerBound < 1 {
		lowerBound = 1
	}
	switch strategy {
	case "legal_aware", "section_aware":
		if b := nearestBoundaryAtOrBefore(sections, candidate, lowerBound); b >= 0 {
			return b, types.BoundarySection
		}
		fallthrough
	case "paragraph_aware":
		if b := nearestBoundaryAtOrBefore(paras, candidate, lowerBound); b >= 0 {
			return b, types.BoundaryParagraph
		}
		if b := nearestBoundaryAtOrBefore(sents, candidate, lowerBound); b >= 0 {
			return b, types.BoundarySentence
		}
	case "sentence_aware":
		if b := nearestBoundaryAtOrBefore(sents, candidate, lowerBound); b >= 0 {
			return b, types.BoundarySentence
		}
	}
	if b := wordBoundaryAtOrBefore(text, candidate, lowerBound); b >= 0 {
		return b, types.BoundaryWord
	}
	return alignRune(text, candidate), types.BoundaryRaw
}

// overlapStart computes where the next chunk begins: OverlapChars back
// from the cut, aligned to a word start, always past the current start.
func (c *Chunker) overlapStart(text string, start, end int) int {
	if c.cfg.OverlapChars == 0 {
		return end
	}
	next := end - c.cfg.OverlapChars
	if next <= start {
		return end
	}
	// Walk back to a word start; bounded so pathological unspaced text
	// cannot stall progress.
	limit := next - 200
	if limit < start+1 {
		limit = start + 1
	}
	for next > limit && next < len(text) && !isSpace(text[next-1]) {
		next--
	}
	if next <= start {
		return end
	}
	return alignRune(text, next)
}

func wordBoundaryAtOrBefore(text string, pos, lowerBound int) int {
	for i := pos; i >= lowerBound; i-- {
		if isSpace(text[i-1]) {
			return i
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// alignRune moves pos back to the nearest UTF-8 rune start.
func alignRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// mergeSmallestNeighbors merges the adjacent pair with the smallest
// combined length into one chunk.
func mergeSmallestNeighbors(raws []rawChunk) []rawChunk {
	if len(raws) < 2 {
		return raws
	}
	best := 0
	bestLen := -1
	for i := 0; i+1 < len(raws); i++ {
		combined := raws[i+1].end - raws[i].start
		if bestLen < 0 || combined < bestLen {
			best, bestLen = i, combined
		}
	}
	mergedChunk := rawChunk{start: raws[best].start, end: raws[best+1].end, kind: raws[best+1].kind}
	out := append([]rawChunk{}, raws[:best]...)
	out = append(out, mergedChunk)
	out = append(out, raws[best+2:]...)
	return out
}

// materialize converts byte-offset raw chunks to rune-offset Chunks and
// records overlap metadata.
func (c *Chunker) materialize(text string, raws []rawChunk, strategy string) []types.Chunk {
	runeAt := runeOffsets(text, raws)

	chunks := make([]types.Chunk, 0, len(raws))
	for i, rc := range raws {
		ch := types.Chunk{
			Index:        i,
			Text:         text[rc.start:rc.end],
			StartPos:     runeAt[rc.start],
			EndPos:       runeAt[rc.end],
			ChunkType:    strategy,
			BoundaryKind: rc.kind,
		}
		if i > 0 && raws[i-1].end > rc.start {
			ch.OverlapBeforeChars = runeAt[raws[i-1].end] - ch.StartPos
		}
		if i+1 < len(raws) && rc.end > raws[i+1].start {
			ch.OverlapAfterChars = ch.EndPos - runeAt[raws[i+1].start]
		}
		ch.HasOverlap = ch.OverlapBeforeChars > 0 || ch.OverlapAfterChars > 0
		chunks = append(chunks, ch)
	}
	return chunks
}

// runeOffsets maps every byte offset used by raws to its rune offset in
// a single pass over the text.
func runeOffsets(text string, raws []rawChunk) map[int]int {
	needed := make([]int, 0, len(raws)*2)
	for _, rc := range raws {
		needed = append(needed, rc.start, rc.end)
	}
	sort.Ints(needed)

	out := make(map[int]int, len(needed))
	runeIdx := 0
	next := 0
	for byteIdx := range text {
		for next < len(needed) && needed[next] <= byteIdx {
			out[needed[next]] = runeIdx
			next++
		}
		runeIdx++
	}
	for next < len(needed) {
		out[needed[next]] = runeIdx
		next++
	}
	return out
}
