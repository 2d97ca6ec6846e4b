package validate

import (
	"encoding/json"
	"fmt"
	"sync"

	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// IDAllocator hands out document-scoped entity IDs. Safe for use from
// concurrent chunk workers.
type IDAllocator struct {
	docID string
	mu    sync.Mutex
	next  int
}

func NewIDAllocator(docID string) *IDAllocator {
	return &IDAllocator{docID: docID}
}

// Next returns the next ID in allocation order, e.g. "doc42_e0".
func (a *IDAllocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := fmt.Sprintf("%s_e%d", a.docID, a.next)
	a.next++
	return id
}

// EntityReport carries the surviving entities of one parsed response plus
// the count of items rejected by per-entity rules. IDMap translates the
// model's own entity ids (when it supplied any) to the assigned ids, so
// combined responses can resolve relationship endpoints.
type EntityReport struct {
	Entities   []types.Entity
	Rejections int
	IDMap      map[string]string
}

// RelationshipReport separates hard rejections (malformed, dangling or
// self-referential items) from confidence-floor filtering.
type RelationshipReport struct {
	Relationships []types.Relationship
	Rejections    int
	Filtered      int
}

// forbiddenAliases are key names the wire contract bans outright. The
// grammar constraint should make them impossible, so their presence means
// the backend ignored guided_json and the item cannot be trusted.
var forbiddenAliases = []string{"type", "start", "end"}

type wireEntity struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	EntityType string   `json:"entity_type"`
	StartPos   *int     `json:"start_pos"`
	EndPos     *int     `json:"end_pos"`
	Confidence *float64 `json:"confidence"`
	Subtype    string   `json:"subtype"`
}

type wireRelationship struct {
	SourceEntityID   string   `json:"source_entity_id"`
	TargetEntityID   string   `json:"target_entity_id"`
	RelationshipType string   `json:"relationship_type"`
	Confidence       *float64 `json:"confidence"`
	EvidenceText     string   `json:"evidence_text"`
}

// ParseEntities decodes the content string of an entity-wave response.
// The backend decodes under grammar constraint, so a parse failure of the
// envelope is exceptional: it is logged and returned as an error, and the
// caller drops the whole response for that wave or chunk. Individual
// items that break a validation rule are dropped and counted, never
// repaired.
func ParseEntities(content string, alloc *IDAllocator) (EntityReport, error) {
	var envelope struct {
		Entities []json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		logging.Validate("entity envelope parse failed: %v", err)
		return EntityReport{}, &types.SchemaViolationError{Item: "entity envelope", Reason: err.Error()}
	}

	report := EntityReport{IDMap: make(map[string]string)}
	for i, raw := range envelope.Entities {
		ent, modelID, reason := validateEntityItem(raw, alloc)
		if reason != "" {
			report.Rejections++
			logging.Validate("entity %d rejected: %s", i, reason)
			continue
		}
		if modelID != "" {
			report.IDMap[modelID] = ent.ID
		}
		report.Entities = append(report.Entities, ent)
	}
	return report, nil
}

// validateEntityItem applies the per-entity rules and returns the reason
// for rejection, or "" when the item survives.
func validateEntityItem(raw json.RawMessage, alloc *IDAllocator) (types.Entity, string, string) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return types.Entity{}, "", "not an object"
	}
	for _, alias := range forbiddenAliases {
		if _, ok := keys[alias]; ok {
			return types.Entity{}, "", fmt.Sprintf("forbidden alias key %q", alias)
		}
	}

	var w wireEntity
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Entity{}, "", "field decode: " + err.Error()
	}
	if w.Text == "" {
		return types.Entity{}, "", "empty text"
	}
	if !types.ValidEntityType(types.EntityType(w.EntityType)) {
		return types.Entity{}, "", fmt.Sprintf("entity_type %q not in enumeration", w.EntityType)
	}
	if w.Confidence == nil {
		return types.Entity{}, "", "missing confidence"
	}
	if *w.Confidence < 0 || *w.Confidence > 1 {
		return types.Entity{}, "", fmt.Sprintf("confidence %v outside [0,1]", *w.Confidence)
	}
	if w.StartPos != nil && *w.StartPos < 0 {
		return types.Entity{}, "", "negative start_pos"
	}
	if w.StartPos != nil && w.EndPos != nil && *w.EndPos < *w.StartPos {
		return types.Entity{}, "", fmt.Sprintf("end_pos %d before start_pos %d", *w.EndPos, *w.StartPos)
	}
	if controlAbuse(w.Text) {
		return types.Entity{}, "", "control characters in text"
	}
	if controlAbuse(w.Subtype) {
		return types.Entity{}, "", "control characters in subtype"
	}

	ent := types.Entity{
		ID:         alloc.Next(),
		Text:       w.Text,
		EntityType: types.EntityType(w.EntityType),
		Confidence: *w.Confidence,
		Subtype:    w.Subtype,
	}
	if w.StartPos != nil {
		ent.StartPos = *w.StartPos
	}
	if w.EndPos != nil {
		ent.EndPos = *w.EndPos
	}
	return ent, w.ID, ""
}

// controlAbuse reports NUL or control characters outside ordinary
// whitespace in a string field.
func controlAbuse(s string) bool {
	for _, r := range s {
		if r == 0 || r == 0x7f {
			return true
		}
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return true
		}
	}
	return false
}

// ParseRelationships decodes the content string of a relationship-wave
// response. known is the set of entity IDs produced by earlier waves of
// the same extraction; items referencing anything else are rejected.
// Items below floor are filtered, not rejected, and counted separately.
func ParseRelationships(content string, known map[string]struct{}, floor float64) (RelationshipReport, error) {
	var envelope struct {
		Relationships []json.RawMessage `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		logging.Validate("relationship envelope parse failed: %v", err)
		return RelationshipReport{}, &types.SchemaViolationError{Item: "relationship envelope", Reason: err.Error()}
	}
	return validateRelationships(envelope.Relationships, known, nil, floor), nil
}

func validateRelationships(items []json.RawMessage, known map[string]struct{}, remap map[string]string, floor float64) RelationshipReport {
	var report RelationshipReport
	for i, raw := range items {
		rel, reason := validateRelationshipItem(raw, known, remap)
		if reason != "" {
			report.Rejections++
			logging.Validate("relationship %d rejected: %s", i, reason)
			continue
		}
		if rel.Confidence < floor {
			report.Filtered++
			continue
		}
		report.Relationships = append(report.Relationships, rel)
	}
	return report
}

func validateRelationshipItem(raw json.RawMessage, known map[string]struct{}, remap map[string]string) (types.Relationship, string) {
	var w wireRelationship
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Relationship{}, "field decode: " + err.Error()
	}
	if w.SourceEntityID == "" || w.TargetEntityID == "" || w.RelationshipType == "" || w.EvidenceText == "" {
		return types.Relationship{}, "missing required field"
	}
	if w.Confidence == nil {
		return types.Relationship{}, "missing confidence"
	}
	if *w.Confidence < 0 || *w.Confidence > 1 {
		return types.Relationship{}, fmt.Sprintf("confidence %v outside [0,1]", *w.Confidence)
	}
	if !types.ValidRelationshipType(types.RelationshipType(w.RelationshipType)) {
		return types.Relationship{}, fmt.Sprintf("relationship_type %q not in enumeration", w.RelationshipType)
	}
	if controlAbuse(w.EvidenceText) {
		return types.Relationship{}, "control characters in evidence_text"
	}

	source, target := w.SourceEntityID, w.TargetEntityID
	if remap != nil {
		var ok bool
		if source, ok = remap[source]; !ok {
			return types.Relationship{}, fmt.Sprintf("source %q not among response entities", w.SourceEntityID)
		}
		if target, ok = remap[target]; !ok {
			return types.Relationship{}, fmt.Sprintf("target %q not among response entities", w.TargetEntityID)
		}
	}
	if _, ok := known[source]; !ok {
		return types.Relationship{}, fmt.Sprintf("source %q unknown in this extraction", source)
	}
	if _, ok := known[target]; !ok {
		return types.Relationship{}, fmt.Sprintf("target %q unknown in this extraction", target)
	}
	if source == target {
		return types.Relationship{}, "self-referential relationship"
	}

	return types.Relationship{
		SourceEntityID:   source,
		TargetEntityID:   target,
		RelationshipType: types.RelationshipType(w.RelationshipType),
		Confidence:       *w.Confidence,
		EvidenceText:     w.EvidenceText,
	}, ""
}

// ParseCombined decodes a single-pass response carrying entities and
// relationships together. Relationship endpoints reference the ids the
// model invented for its own entities, so they are remapped to the
// assigned ids before the referential checks run. Entities rejected by
// validation take their relationships down with them: a dangling endpoint
// is a rejection.
func ParseCombined(content string, alloc *IDAllocator, floor float64) (EntityReport, RelationshipReport, error) {
	var envelope struct {
		Entities      []json.RawMessage `json:"entities"`
		Relationships []json.RawMessage `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		logging.Validate("combined envelope parse failed: %v", err)
		return EntityReport{}, RelationshipReport{}, &types.SchemaViolationError{Item: "combined envelope", Reason: err.Error()}
	}

	entReport := EntityReport{IDMap: make(map[string]string)}
	for i, raw := range envelope.Entities {
		ent, modelID, reason := validateEntityItem(raw, alloc)
		if reason != "" {
			entReport.Rejections++
			logging.Validate("entity %d rejected: %s", i, reason)
			continue
		}
		if modelID != "" {
			entReport.IDMap[modelID] = ent.ID
		}
		entReport.Entities = append(entReport.Entities, ent)
	}

	known := make(map[string]struct{}, len(entReport.Entities))
	for _, e := range entReport.Entities {
		known[e.ID] = struct{}{}
	}
	relReport := validateRelationships(envelope.Relationships, known, entReport.IDMap, floor)
	return entReport, relReport, nil
}
