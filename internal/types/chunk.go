package types

// BoundaryKind records which boundary class produced a chunk's cut point.
type BoundaryKind string

const (
	BoundarySection   BoundaryKind = "section"
	BoundaryParagraph BoundaryKind = "paragraph"
	BoundarySentence  BoundaryKind = "sentence"
	BoundarySpanEnd   BoundaryKind = "span_end" // pushed past a preserved span
	BoundaryWord      BoundaryKind = "word"
	BoundaryRaw       BoundaryKind = "raw"
)

// Chunk is one slice of a large document. Positions are rune offsets into
// the original document text. With overlap configured, EndPos of chunk k
// is >= StartPos of chunk k+1; without overlap consecutive chunks tile
// the document exactly.
type Chunk struct {
	Index             int          `json:"index"`
	Text              string       `json:"text"`
	StartPos          int          `json:"start_pos"`
	EndPos            int          `json:"end_pos"`
	ChunkType         string       `json:"chunk_type"` // chunking strategy that produced it
	BoundaryKind      BoundaryKind `json:"boundary_kind"`
	HasOverlap        bool         `json:"has_overlap"`
	OverlapBeforeChars int         `json:"overlap_before_chars"`
	OverlapAfterChars  int         `json:"overlap_after_chars"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int { return c.EndPos - c.StartPos }
