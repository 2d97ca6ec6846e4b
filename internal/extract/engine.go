// Package extract is the orchestrator: it sizes and routes a document,
// runs the strategy's LLM waves against the inference clients, validates
// and merges the output, and produces exactly one ExtractionResult.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lexgraph/internal/chunker"
	"lexgraph/internal/config"
	"lexgraph/internal/inference"
	"lexgraph/internal/logging"
	"lexgraph/internal/patterns"
	"lexgraph/internal/prompt"
	"lexgraph/internal/router"
	"lexgraph/internal/sizing"
	"lexgraph/internal/types"
	"lexgraph/internal/validate"
)

const extractionMethod = "llm_guided"

// Options are the caller's per-extraction switches.
type Options struct {
	ExtractRelationships bool
}

// Engine ties the pipeline together. One Engine serves many documents;
// it holds no per-document state between Extract calls.
type Engine struct {
	cfg       *config.Config
	detector  *sizing.Detector
	chunker   *chunker.Chunker
	assembler *prompt.Assembler
	clients   *inference.Factory

	// Lazy backend connections, single-flight per service.
	connectMu sync.Mutex
	connected map[inference.Service]bool
}

// New builds an Engine from validated configuration. No backend
// connection is made until the first extraction needs one.
func New(cfg *config.Config) (*Engine, error) {
	catalog := patterns.NewClient(cfg.Patterns.CatalogURL,
		time.Duration(cfg.Patterns.CacheTTLSeconds)*time.Second, nil)
	asm, err := prompt.New(catalog, cfg.Patterns.TemplateDir)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		detector:  sizing.NewDetector(cfg.Sizing),
		chunker:   chunker.New(cfg.Chunking, nil),
		assembler: asm,
		clients:   inference.NewFactory(cfg),
		connected: make(map[inference.Service]bool),
	}, nil
}

// Close releases the prompt watcher, backend clients and the resource
// monitor.
func (e *Engine) Close() error {
	err := e.assembler.Close()
	if cerr := e.clients.Close(); err == nil {
		err = cerr
	}
	return err
}

// Extract runs the full pipeline for one document. A cancelled or failed
// extraction returns no partial result.
func (e *Engine) Extract(ctx context.Context, doc types.Document, opts Options) (*types.ExtractionResult, error) {
	start := time.Now()
	if deadline := e.cfg.ExtractionDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	info := e.detector.Detect(doc.Text)
	decision := router.Route(info, opts.ExtractRelationships)

	res := &types.ExtractionResult{
		DocumentID:    doc.ID,
		ExtractionID:  uuid.NewString(),
		Entities:      []types.Entity{},
		Relationships: []types.Relationship{},
		Strategy:      decision.Strategy,
		StrategyName:  decision.Strategy.String(),
		Metadata:      types.ResultMetadata{RoutingRationale: decision.Rationale},
	}

	if !decision.Strategy.RequiresLLM() {
		switch decision.Strategy {
		case types.StrategyEmptyDocument:
			res.Metadata.EdgeCase = "empty_document"
		case types.StrategyInvalidDocument:
			res.Metadata.EdgeCase = "invalid_document"
		case types.StrategyTooSmall:
			res.Metadata.EdgeCase = "too_small"
		}
		res.ProcessingTime = time.Since(start)
		logging.Extract("document %s short-circuited: %s", doc.ID, res.Metadata.EdgeCase)
		return res, nil
	}

	alloc := validate.NewIDAllocator(doc.ID)
	var err error
	switch decision.Strategy {
	case types.StrategySinglePass:
		err = e.singlePass(ctx, doc, alloc, res)
	case types.StrategyThreeWave:
		err = e.threeWave(ctx, doc, alloc, res)
	case types.StrategyFourWave:
		err = e.fourWave(ctx, doc, alloc, res)
	case types.StrategyThreeWaveChunked:
		err = e.threeWaveChunked(ctx, doc, res)
	default:
		err = fmt.Errorf("unhandled strategy %s", decision.Strategy)
	}
	if err != nil {
		return nil, err
	}

	if res.Entities == nil {
		res.Entities = []types.Entity{}
	}
	if res.Relationships == nil {
		res.Relationships = []types.Relationship{}
	}
	res.ProcessingTime = time.Since(start)
	logging.Extract("document %s: %s produced %d entities, %d relationships in %s",
		doc.ID, res.StrategyName, len(res.Entities), len(res.Relationships),
		res.ProcessingTime.Round(time.Millisecond))
	return res, nil
}

// client returns a connected client for the service. The first caller
// pays for the health check; concurrent callers wait on the mutex.
func (e *Engine) client(ctx context.Context, svc inference.Service) (inference.Client, error) {
	c := e.clients.Client(svc)
	e.connectMu.Lock()
	defer e.connectMu.Unlock()
	if e.connected[svc] {
		return c, nil
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	e.connected[svc] = true
	return c, nil
}

// thinkingClient returns the relationship-wave client, degrading to the
// instruct client when the thinking endpoint will not come up.
func (e *Engine) thinkingClient(ctx context.Context) (inference.Client, bool, error) {
	c, err := e.client(ctx, inference.ServiceThinking)
	if err == nil {
		return c, false, nil
	}
	logging.ExtractWarn("thinking endpoint unavailable (%v); relationship wave falls back to the instruct client", err)
	c, ierr := e.client(ctx, inference.ServiceInstruct)
	if ierr != nil {
		return nil, false, ierr
	}
	return c, true, nil
}

// callWave makes one backend call under the per-wave timeout and returns
// the constrained content plus tokens consumed.
func (e *Engine) callWave(ctx context.Context, client inference.Client, promptText, prior, docText string, schema json.RawMessage) (string, int, error) {
	wctx := ctx
	if wt := e.cfg.WaveTimeout(); wt > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, wt)
		defer cancel()
	}

	var msgs []inference.Message
	if prior != "" {
		msgs = append(msgs, inference.Message{Role: "system", Content: prior})
	}
	msgs = append(msgs, inference.Message{Role: "user", Content: promptText + "\n" + docText})

	resp, err := client.GenerateChatCompletion(wctx, &inference.Request{
		Messages:   msgs,
		GuidedJSON: schema,
	})
	if err != nil {
		return "", 0, err
	}
	content, err := resp.Content()
	if err != nil {
		return "", 0, err
	}
	return content, resp.Usage.TotalTokens, nil
}

// priorEntitiesBlock renders already-extracted entities as disambiguation
// context for later waves.
func priorEntitiesBlock(entities []types.Entity) string {
	if len(entities) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("ALREADY EXTRACTED IN EARLIER PASSES (context only; do not re-emit):\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "- %s: %s\n", e.EntityType, e.Text)
	}
	return b.String()
}

func waveNumber(w prompt.Wave) *int {
	n := w.Number()
	return &n
}

// runEntityWaves executes waves 1-3 sequentially over text, feeding each
// wave the accumulated entities of the previous ones. A wave whose
// response cannot be parsed contributes nothing; the remaining waves
// still run.
func (e *Engine) runEntityWaves(ctx context.Context, text string, alloc *validate.IDAllocator, chunkIndex *int, res *waveOutcome) error {
	client, err := e.client(ctx, inference.ServiceInstruct)
	if err != nil {
		return err
	}

	for _, wave := range []prompt.Wave{prompt.Wave1, prompt.Wave2, prompt.Wave3} {
		if err := ctx.Err(); err != nil {
			return err
		}
		promptText, err := e.assembler.Assemble(ctx, wave)
		if err != nil {
			return err
		}
		content, tokens, err := e.callWave(ctx, client, promptText,
			priorEntitiesBlock(res.entities), text, validate.EntityWaveSchema(wave.Families()...))
		if err != nil {
			return err
		}
		res.tokens += tokens
		res.wavesRun++

		report, err := validate.ParseEntities(content, alloc)
		if err != nil {
			logging.ExtractWarn("wave %d response unparseable despite grammar constraint; dropping it: %v", wave.Number(), err)
			res.notes = append(res.notes, fmt.Sprintf("wave %d response dropped: unparseable", wave.Number()))
			continue
		}
		res.rejections += report.Rejections
		for i := range report.Entities {
			report.Entities[i].WaveNumber = waveNumber(wave)
			report.Entities[i].PromptTemplate = string(wave)
			report.Entities[i].ExtractionMethod = extractionMethod
			report.Entities[i].ChunkIndex = chunkIndex
		}
		res.entities = append(res.entities, report.Entities...)
	}
	return nil
}

// waveOutcome accumulates what a wave sequence produced.
type waveOutcome struct {
	entities   []types.Entity
	rejections int
	tokens     int
	wavesRun   int
	notes      []string
}

func (e *Engine) singlePass(ctx context.Context, doc types.Document, alloc *validate.IDAllocator, res *types.ExtractionResult) error {
	client, err := e.client(ctx, inference.ServiceInstruct)
	if err != nil {
		return err
	}
	promptText, err := e.assembler.Assemble(ctx, prompt.WaveSinglePass)
	if err != nil {
		return err
	}
	content, tokens, err := e.callWave(ctx, client, promptText, "", doc.Text, validate.CombinedSchema())
	if err != nil {
		return err
	}
	res.TokensUsed += tokens
	res.WavesExecuted = 1

	entReport, relReport, err := validate.ParseCombined(content, alloc, e.cfg.Extract.RelationshipConfidenceFloor)
	if err != nil {
		return err
	}
	for i := range entReport.Entities {
		entReport.Entities[i].PromptTemplate = string(prompt.WaveSinglePass)
		entReport.Entities[i].ExtractionMethod = extractionMethod
	}

	docRunes := []rune(doc.Text)
	entities, posDropped := soundPositions(docRunes, entReport.Entities)
	kept, alias, seen := dedupEntities(entities, e.cfg.Extract.DedupMode, e.cfg.Extract.DedupSimilarityThreshold)
	enrichContext(docRunes, kept, e.cfg.Extract.ContextWindowChars)

	rels, remapDropped := remapRelationships(relReport.Relationships, alias)
	res.Entities = kept
	res.Relationships = dedupRelationships(rels)
	res.Metadata.SchemaRejections = entReport.Rejections + posDropped
	res.Metadata.RelationshipsDropped = relReport.Rejections + relReport.Filtered + remapDropped
	res.Metadata.DedupRatio = dedupRatio(len(kept), seen)
	return nil
}

func (e *Engine) threeWave(ctx context.Context, doc types.Document, alloc *validate.IDAllocator, res *types.ExtractionResult) error {
	var out waveOutcome
	if err := e.runEntityWaves(ctx, doc.Text, alloc, nil, &out); err != nil {
		return err
	}
	res.WavesExecuted = out.wavesRun
	res.TokensUsed += out.tokens
	res.Metadata.Notes = append(res.Metadata.Notes, out.notes...)

	docRunes := []rune(doc.Text)
	entities, posDropped := soundPositions(docRunes, out.entities)
	kept, _, seen := dedupEntities(entities, e.cfg.Extract.DedupMode, e.cfg.Extract.DedupSimilarityThreshold)
	enrichContext(docRunes, kept, e.cfg.Extract.ContextWindowChars)

	res.Entities = kept
	res.Metadata.SchemaRejections = out.rejections + posDropped
	res.Metadata.DedupRatio = dedupRatio(len(kept), seen)
	return nil
}

func (e *Engine) fourWave(ctx context.Context, doc types.Document, alloc *validate.IDAllocator, res *types.ExtractionResult) error {
	if err := e.threeWave(ctx, doc, alloc, res); err != nil {
		return err
	}
	e.relationshipWave(ctx, doc, res)
	return nil
}

// relationshipWave runs wave 4 over the deduplicated entity set. Wave 4
// failures never fail the extraction: entity results stand and the
// failure is recorded in metadata.
func (e *Engine) relationshipWave(ctx context.Context, doc types.Document, res *types.ExtractionResult) {
	client, degraded, err := e.thinkingClient(ctx)
	if err != nil {
		e.recordWave4Failure(res, err)
		return
	}
	res.Metadata.DegradedThinking = degraded

	promptText, err := e.assembler.AssembleWave4(ctx, res.Entities)
	if err != nil {
		e.recordWave4Failure(res, err)
		return
	}
	content, tokens, err := e.callWave(ctx, client, promptText, "", doc.Text, validate.RelationshipSchema())
	if err != nil {
		e.recordWave4Failure(res, err)
		return
	}
	res.TokensUsed += tokens
	res.WavesExecuted++

	known := make(map[string]struct{}, len(res.Entities))
	for _, ent := range res.Entities {
		known[ent.ID] = struct{}{}
	}
	report, err := validate.ParseRelationships(content, known, e.cfg.Extract.RelationshipConfidenceFloor)
	if err != nil {
		e.recordWave4Failure(res, err)
		return
	}
	res.Relationships = dedupRelationships(report.Relationships)
	res.Metadata.RelationshipsDropped = report.Rejections + report.Filtered
}

func (e *Engine) recordWave4Failure(res *types.ExtractionResult, err error) {
	logging.ExtractWarn("relationship wave failed for document %s: %v", res.DocumentID, err)
	res.Metadata.Wave4Failure = err.Error()
	res.Relationships = []types.Relationship{}
}

func (e *Engine) threeWaveChunked(ctx context.Context, doc types.Document, res *types.ExtractionResult) error {
	chunks, stats := e.chunker.Split(doc.Text)

	outcomes := make([]waveOutcome, len(chunks))
	chunkErrs := make([]error, len(chunks))
	durations := make([]time.Duration, len(chunks))

	sem := semaphore.NewWeighted(int64(e.cfg.Extract.MaxConcurrentChunks))
	g, gctx := errgroup.WithContext(ctx)
	for i := range chunks {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			start := time.Now()
			idx := i
			// Provisional chunk-scoped IDs; final IDs are assigned after
			// the ordered merge so they do not depend on scheduling.
			alloc := validate.NewIDAllocator(fmt.Sprintf("%s_c%d", doc.ID, i))
			err := e.runEntityWaves(gctx, chunks[i].Text, alloc, &idx, &outcomes[i])
			durations[i] = time.Since(start)
			if err != nil {
				// Cancellation aborts everything; a failed backend call
				// costs only this chunk.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.ExtractWarn("chunk %d failed: %v", i, err)
				chunkErrs[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var merged []types.Entity
	failed := 0
	results := make([]types.ChunkResult, len(chunks))
	for i, ch := range chunks {
		out := outcomes[i]
		results[i] = types.ChunkResult{
			Index:      i,
			Entities:   len(out.entities),
			WavesRun:   out.wavesRun,
			DurationMS: durations[i].Milliseconds(),
		}
		if chunkErrs[i] != nil {
			results[i].Error = chunkErrs[i].Error()
			results[i].Entities = 0
			failed++
			continue
		}
		res.TokensUsed += out.tokens
		res.Metadata.SchemaRejections += out.rejections
		res.Metadata.Notes = append(res.Metadata.Notes, out.notes...)
		for j := range out.entities {
			out.entities[j].StartPos += ch.StartPos
			out.entities[j].EndPos += ch.StartPos
			out.entities[j].Metadata = map[string]string{
				"chunk_boundary_kind": string(ch.BoundaryKind),
			}
		}
		merged = append(merged, out.entities...)
	}
	if len(chunks) > 0 && failed == len(chunks) {
		return fmt.Errorf("all %d chunks failed; first error: %w", len(chunks), firstError(chunkErrs))
	}

	docRunes := []rune(doc.Text)
	entities, posDropped := soundPositions(docRunes, merged)
	kept, _, seen := dedupEntities(entities, e.cfg.Extract.DedupMode, e.cfg.Extract.DedupSimilarityThreshold)
	// Renumber survivors over the chunk-ordered merge; the provisional
	// per-chunk IDs are never emitted.
	final := validate.NewIDAllocator(doc.ID)
	for i := range kept {
		kept[i].ID = final.Next()
	}
	enrichContext(docRunes, kept, e.cfg.Extract.ContextWindowChars)

	stats.FailedChunks = failed
	res.Entities = kept
	res.WavesExecuted = 3
	res.Metadata.SchemaRejections += posDropped
	res.Metadata.RelationshipsSkipped = true
	res.Metadata.ChunkStatistics = &stats
	res.Metadata.ChunkResults = results
	res.Metadata.DedupRatio = dedupRatio(len(kept), seen)
	res.Metadata.DocumentSubtype = string(chunker.DetectSubtype(doc.Text))
	return nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func dedupRatio(kept, seen int) float64 {
	if seen == 0 {
		return 0
	}
	return float64(kept) / float64(seen)
}
