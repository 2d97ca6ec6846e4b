package extract

import (
	"context"
	"errors"
	"io"
	"testing"

	"lexgraph/internal/inference"
	"lexgraph/internal/types"
)

type sliceSource struct {
	docs []types.Document
	pos  int
}

func (s *sliceSource) Next(ctx context.Context) (types.Document, error) {
	if err := ctx.Err(); err != nil {
		return types.Document{}, err
	}
	if s.pos >= len(s.docs) {
		return types.Document{}, io.EOF
	}
	d := s.docs[s.pos]
	s.pos++
	return d, nil
}

type collectSink struct {
	results []*types.ExtractionResult
}

func (c *collectSink) Accept(ctx context.Context, r *types.ExtractionResult) error {
	c.results = append(c.results, r)
	return nil
}

func TestRunDrainsSource(t *testing.T) {
	b := newBackend(t)
	b.combined = smithVJonesCombined
	e := newEngine(t, engineConfig(b.srv.URL))

	src := &sliceSource{docs: []types.Document{
		types.NewDocument("batch1", smithVJones, nil),
		types.NewDocument("batch2", "", nil),
		types.NewDocument("batch3", smithVJones, nil),
	}}
	var sink collectSink
	if err := e.Run(context.Background(), src, &sink, Options{}); err != nil {
		t.Fatal(err)
	}

	if len(sink.results) != 3 {
		t.Fatalf("results = %d, want one per document", len(sink.results))
	}
	if sink.results[0].DocumentID != "batch1" || sink.results[2].DocumentID != "batch3" {
		t.Errorf("order not preserved: %s, %s",
			sink.results[0].DocumentID, sink.results[2].DocumentID)
	}
	// Edge cases still produce exactly one result.
	if sink.results[1].Metadata.EdgeCase != "empty_document" {
		t.Errorf("edge case = %q", sink.results[1].Metadata.EdgeCase)
	}

	stats := e.Stats()
	instruct := stats[inference.ServiceInstruct]
	if instruct.Requests != 2 {
		t.Errorf("instruct requests = %d, want 2 (empty doc makes no call)", instruct.Requests)
	}
	if instruct.TokensUsed == 0 {
		t.Error("token counter not accumulated")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	b := newBackend(t)
	e := newEngine(t, engineConfig(b.srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{docs: []types.Document{types.NewDocument("d", smithVJones, nil)}}
	var sink collectSink
	err := e.Run(ctx, src, &sink, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sink.results) != 0 {
		t.Error("no results expected after cancellation")
	}
}

type failingSink struct{}

func (failingSink) Accept(context.Context, *types.ExtractionResult) error {
	return errors.New("disk full")
}

func TestRunPropagatesSinkError(t *testing.T) {
	b := newBackend(t)
	b.combined = smithVJonesCombined
	e := newEngine(t, engineConfig(b.srv.URL))

	src := &sliceSource{docs: []types.Document{types.NewDocument("d", smithVJones, nil)}}
	err := e.Run(context.Background(), src, failingSink{}, Options{})
	if err == nil || err.Error() != "result sink: disk full" {
		t.Fatalf("err = %v", err)
	}
}
