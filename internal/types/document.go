// Package types defines the shared data model for the extraction engine:
// documents, size classification, strategies, chunks, entities,
// relationships, results, and the error taxonomy. All other packages
// depend on this one; it depends on nothing internal.
package types

import "context"

// Document is the immutable input to an extraction. It is created by the
// caller and borrowed by the engine; the engine never mutates it.
type Document struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	ByteLength int               `json:"byte_length"`
	CharLength int               `json:"char_length"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewDocument builds a Document with derived lengths. CharLength counts
// runes, not bytes; all entity positions are rune offsets into Text.
func NewDocument(id, text string, metadata map[string]string) Document {
	return Document{
		ID:         id,
		Text:       text,
		ByteLength: len(text),
		CharLength: len([]rune(text)),
		Metadata:   metadata,
	}
}

// DocumentSource supplies documents to the engine. Upload and format
// conversion live behind this interface, outside the core. Next returns
// io.EOF once the source is exhausted.
type DocumentSource interface {
	Next(ctx context.Context) (Document, error)
}

// ResultSink receives exactly one ExtractionResult per processed document.
type ResultSink interface {
	Accept(ctx context.Context, result *ExtractionResult) error
}
