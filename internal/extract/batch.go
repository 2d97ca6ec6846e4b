package extract

import (
	"context"
	"errors"
	"fmt"
	"io"

	"lexgraph/internal/inference"
	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// Run drains a DocumentSource, extracting each document and handing its
// result to the sink. The source signals exhaustion with io.EOF. A
// document whose extraction fails is logged and skipped; cancellation
// and source/sink errors stop the run.
func (e *Engine) Run(ctx context.Context, src types.DocumentSource, sink types.ResultSink, opts Options) error {
	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("document source: %w", err)
		}

		res, err := e.Extract(ctx, doc, opts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.ExtractWarn("document %s failed, continuing with next: %v", doc.ID, err)
			continue
		}
		if err := sink.Accept(ctx, res); err != nil {
			return fmt.Errorf("result sink: %w", err)
		}
	}
}

// Stats snapshots the backend client counters accumulated so far.
func (e *Engine) Stats() map[inference.Service]inference.Stats {
	return e.clients.Stats()
}
