// Package prompt assembles wave prompts from embedded templates,
// catalog pattern examples, and hard-coded anti-pattern blocks.
// Templates are baked into the binary; an optional override directory
// supplies on-disk replacements with hot reload.
package prompt

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lexgraph/internal/logging"
	"lexgraph/internal/patterns"
	"lexgraph/internal/types"
)

//go:embed templates
var embeddedTemplates embed.FS

// Wave identifies a prompt template.
type Wave string

const (
	WaveSinglePass Wave = "single_pass"
	Wave1          Wave = "wave1"
	Wave2          Wave = "wave2"
	Wave3          Wave = "wave3"
	Wave4          Wave = "wave4"
)

// Number returns the wave number, 0 for the single-pass prompt.
func (w Wave) Number() int {
	switch w {
	case Wave1:
		return 1
	case Wave2:
		return 2
	case Wave3:
		return 3
	case Wave4:
		return 4
	default:
		return 0
	}
}

// Families returns the entity families a wave's prompt covers.
func (w Wave) Families() []types.EntityFamily {
	switch w {
	case Wave1:
		return []types.EntityFamily{types.FamilyActors, types.FamilyCitations, types.FamilyTemporal}
	case Wave2:
		return []types.EntityFamily{types.FamilyProcedural, types.FamilyFinancial, types.FamilyOrganizations}
	case Wave3:
		return []types.EntityFamily{types.FamilySupporting}
	case WaveSinglePass:
		return []types.EntityFamily{
			types.FamilyActors, types.FamilyCitations, types.FamilyTemporal,
			types.FamilyProcedural, types.FamilyFinancial, types.FamilyOrganizations,
			types.FamilySupporting,
		}
	default:
		return nil
	}
}

// Placeholders replaced during assembly.
const (
	placeholderPatterns = "{{pattern_examples}}"
	placeholderPrevious = "{{previous_results}}"
)

// maxExamplesPerType caps how many catalog examples one entity type
// contributes to a prompt.
const maxExamplesPerType = 3

// Assembler builds prompts. Assembled prompts are cached per wave;
// wave 4 depends on per-document entities and is rendered every call.
type Assembler struct {
	catalog     *patterns.Client
	overrideDir string

	mu    sync.RWMutex
	cache map[Wave]string

	watcher *templateWatcher
}

// New builds an Assembler. overrideDir may be empty; when set, files
// named <wave>.tmpl in it replace the embedded templates and edits to
// them invalidate the cache.
func New(catalog *patterns.Client, overrideDir string) (*Assembler, error) {
	a := &Assembler{
		catalog:     catalog,
		overrideDir: overrideDir,
		cache:       make(map[Wave]string),
	}
	if overrideDir != "" {
		w, err := watchTemplates(overrideDir, a.invalidate)
		if err != nil {
			return nil, fmt.Errorf("failed to watch template dir: %w", err)
		}
		a.watcher = w
	}
	return a, nil
}

// Close stops the template watcher, if any.
func (a *Assembler) Close() error {
	if a.watcher != nil {
		return a.watcher.close()
	}
	return nil
}

// Assemble returns the prompt for a cached wave. Wave 4 must go through
// AssembleWave4.
func (a *Assembler) Assemble(ctx context.Context, wave Wave) (string, error) {
	if wave == Wave4 {
		return "", fmt.Errorf("wave4 prompts are per-document; use AssembleWave4")
	}

	a.mu.RLock()
	cached, ok := a.cache[wave]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	tmpl, err := a.loadTemplate(wave)
	if err != nil {
		return "", err
	}
	assembled := strings.ReplaceAll(tmpl, placeholderPatterns, a.patternBlock(ctx, wave))

	a.mu.Lock()
	a.cache[wave] = assembled
	a.mu.Unlock()
	logging.Prompt("assembled %s prompt (%d chars)", wave, len(assembled))
	return assembled, nil
}

// AssembleWave4 renders the relationship prompt against the entity set
// produced by waves 1-3. Never cached.
func (a *Assembler) AssembleWave4(ctx context.Context, entities []types.Entity) (string, error) {
	tmpl, err := a.loadTemplate(Wave4)
	if err != nil {
		return "", err
	}
	prev, err := previousResultsJSON(entities)
	if err != nil {
		return "", fmt.Errorf("failed to encode previous results: %w", err)
	}
	assembled := strings.ReplaceAll(tmpl, placeholderPrevious, prev)
	assembled = strings.ReplaceAll(assembled, placeholderPatterns, a.patternBlock(ctx, Wave4))
	return assembled, nil
}

func (a *Assembler) invalidate(wave Wave) {
	a.mu.Lock()
	delete(a.cache, wave)
	a.mu.Unlock()
	logging.Prompt("template %s changed on disk, cache invalidated", wave)
}

// loadTemplate prefers the override directory, then the embedded copy.
func (a *Assembler) loadTemplate(wave Wave) (string, error) {
	if a.overrideDir != "" {
		path := filepath.Join(a.overrideDir, string(wave)+".tmpl")
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	data, err := embeddedTemplates.ReadFile("templates/" + string(wave) + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q: %w", wave, err)
	}
	return string(data), nil
}

// patternBlock builds the per-entity-type guidance injected into the
// {{pattern_examples}} placeholder: the type list for the wave, catalog
// examples to extract, and hard-coded anti-patterns to refuse.
func (a *Assembler) patternBlock(ctx context.Context, wave Wave) string {
	families := wave.Families()
	if wave == Wave4 {
		return relationshipGuidance()
	}

	var b strings.Builder
	b.WriteString("ENTITY TYPES FOR THIS PASS:\n")
	for _, fam := range families {
		b.WriteString(strings.ToUpper(string(fam)))
		b.WriteString(": ")
		typs := types.EntityTypesIn(fam)
		names := make([]string, len(typs))
		for i, t := range typs {
			names[i] = string(t)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}

	catalog := a.catalog.Get(ctx)
	var examples []string
	for _, t := range types.EntityTypesIn(families...) {
		for i, ex := range catalog.ExamplesFor(t) {
			if i >= maxExamplesPerType {
				break
			}
			examples = append(examples, fmt.Sprintf("- %s: %q", t, ex))
		}
	}
	if len(examples) > 0 {
		b.WriteString("\nDO extract spans like:\n")
		b.WriteString(strings.Join(examples, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\nDO NOT extract:\n")
	for _, fam := range families {
		for _, neg := range negativeExamples[fam] {
			b.WriteString("- ")
			b.WriteString(neg)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// entityView is the compact per-entity shape injected into wave 4.
type entityView struct {
	ID         string           `json:"id"`
	EntityType types.EntityType `json:"entity_type"`
	Text       string           `json:"text"`
	StartPos   int              `json:"start_pos"`
	EndPos     int              `json:"end_pos"`
}

type previousResults struct {
	Entities             []entityView   `json:"entities"`
	EntityTypesAvailable map[string]int `json:"entity_types_available"`
}

func previousResultsJSON(entities []types.Entity) (string, error) {
	view := previousResults{
		Entities:             make([]entityView, 0, len(entities)),
		EntityTypesAvailable: make(map[string]int),
	}
	for _, e := range entities {
		view.Entities = append(view.Entities, entityView{
			ID:         e.ID,
			EntityType: e.EntityType,
			Text:       e.Text,
			StartPos:   e.StartPos,
			EndPos:     e.EndPos,
		})
		view.EntityTypesAvailable[string(e.EntityType)]++
	}
	data, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func relationshipGuidance() string {
	var b strings.Builder
	b.WriteString("RELATIONSHIP TYPES:\n")
	names := make([]string, 0, 34)
	for _, t := range types.AllRelationshipTypes() {
		names = append(names, string(t))
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\nDO NOT report:\n")
	for _, neg := range relationshipNegatives {
		b.WriteString("- ")
		b.WriteString(neg)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
