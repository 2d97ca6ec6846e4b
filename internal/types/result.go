package types

import "time"

// ChunkResult records the outcome of processing one chunk in chunked mode.
type ChunkResult struct {
	Index       int    `json:"index"`
	Entities    int    `json:"entities"`
	Error       string `json:"error,omitempty"`
	WavesRun    int    `json:"waves_run"`
	DurationMS  int64  `json:"duration_ms"`
}

// ChunkStatistics summarizes the chunking pass for result metadata.
type ChunkStatistics struct {
	TotalChunks     int            `json:"total_chunks"`
	FailedChunks    int            `json:"failed_chunks"`
	MergedNeighbors int            `json:"merged_neighbors"`
	BoundaryKinds   map[string]int `json:"boundary_kinds,omitempty"`
	OverlapChars    int            `json:"overlap_chars"`
}

// ResultMetadata carries per-extraction bookkeeping. Counters here never
// fail an extraction; they surface what was dropped or degraded.
type ResultMetadata struct {
	EdgeCase             string           `json:"edge_case,omitempty"` // empty_document, invalid_document, too_small
	RoutingRationale     string           `json:"routing_rationale,omitempty"`
	DocumentSubtype      string           `json:"document_subtype,omitempty"`
	SchemaRejections     int              `json:"schema_rejections"`
	RelationshipsDropped int              `json:"relationships_dropped"`
	RelationshipsSkipped bool             `json:"relationships_skipped,omitempty"` // chunked mode
	DegradedThinking     bool             `json:"degraded_thinking,omitempty"`     // wave 4 ran on the instruct client
	Wave4Failure         string           `json:"wave4_failure,omitempty"`
	ChunkStatistics      *ChunkStatistics `json:"chunk_statistics,omitempty"`
	ChunkResults         []ChunkResult    `json:"chunk_results,omitempty"`
	DedupRatio           float64          `json:"dedup_ratio,omitempty"` // kept / seen, <= 1.0
	Notes                []string         `json:"notes,omitempty"`
}

// ExtractionResult is the engine's single output per document. It is
// produced exactly once per call and handed to the ResultSink; the engine
// retains no state keyed by document afterwards.
type ExtractionResult struct {
	DocumentID     string         `json:"document_id"`
	ExtractionID   string         `json:"extraction_id"`
	Entities       []Entity       `json:"entities"`
	Relationships  []Relationship `json:"relationships"`
	Strategy       Strategy       `json:"-"`
	StrategyName   string         `json:"strategy"`
	WavesExecuted  int            `json:"waves_executed"`
	TokensUsed     int            `json:"tokens_used"`
	ProcessingTime time.Duration  `json:"processing_time_ns"`
	Metadata       ResultMetadata `json:"metadata"`
}

// EntityByID returns the entity with the given id, if present.
func (r *ExtractionResult) EntityByID(id string) (Entity, bool) {
	for _, e := range r.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}
