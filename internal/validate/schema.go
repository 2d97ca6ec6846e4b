package validate

import (
	"encoding/json"
	"strings"
	"sync"

	"lexgraph/internal/types"
)

// JSON-Schema documents sent as the guided_json grammar constraint.
// Built once and reused; the schemas never change at runtime.

var (
	schemaMu          sync.Mutex
	entitySchemaCache = map[string]json.RawMessage{}

	relationshipSchemaOnce sync.Once
	relationshipSchemaDoc  json.RawMessage

	combinedSchemaOnce sync.Once
	combinedSchemaDoc  json.RawMessage
)

func entityItemSchema(allowed []types.EntityType) map[string]interface{} {
	enum := make([]string, len(allowed))
	for i, t := range allowed {
		enum[i] = string(t)
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "string"},
			"text":        map[string]interface{}{"type": "string", "minLength": 1},
			"entity_type": map[string]interface{}{"type": "string", "enum": enum},
			"start_pos":   map[string]interface{}{"type": "integer", "minimum": 0},
			"end_pos":     map[string]interface{}{"type": "integer", "minimum": 0},
			"confidence":  map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"subtype":     map[string]interface{}{"type": "string"},
		},
		"required":             []string{"text", "entity_type", "start_pos", "end_pos", "confidence"},
		"additionalProperties": false,
	}
}

func relationshipItemSchema() map[string]interface{} {
	all := types.AllRelationshipTypes()
	enum := make([]string, len(all))
	for i, t := range all {
		enum[i] = string(t)
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"source_entity_id":  map[string]interface{}{"type": "string", "minLength": 1},
			"target_entity_id":  map[string]interface{}{"type": "string", "minLength": 1},
			"relationship_type": map[string]interface{}{"type": "string", "enum": enum},
			"confidence":        map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"evidence_text":     map[string]interface{}{"type": "string", "minLength": 1},
		},
		"required":             []string{"source_entity_id", "target_entity_id", "relationship_type", "confidence", "evidence_text"},
		"additionalProperties": false,
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("schema marshal failed: " + err.Error())
	}
	return data
}

// EntityWaveSchema returns the grammar for an entity wave covering the
// given families. Cached per family set.
func EntityWaveSchema(families ...types.EntityFamily) json.RawMessage {
	key := familyKey(families)
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if doc, ok := entitySchemaCache[key]; ok {
		return doc
	}
	doc := mustMarshal(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"entities": map[string]interface{}{
				"type":  "array",
				"items": entityItemSchema(types.EntityTypesIn(families...)),
			},
		},
		"required":             []string{"entities"},
		"additionalProperties": false,
	})
	entitySchemaCache[key] = doc
	return doc
}

func familyKey(families []types.EntityFamily) string {
	parts := make([]string, len(families))
	for i, f := range families {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// RelationshipSchema returns the grammar for the relationship wave.
func RelationshipSchema() json.RawMessage {
	relationshipSchemaOnce.Do(func() {
		relationshipSchemaDoc = mustMarshal(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"relationships": map[string]interface{}{
					"type":  "array",
					"items": relationshipItemSchema(),
				},
			},
			"required":             []string{"relationships"},
			"additionalProperties": false,
		})
	})
	return relationshipSchemaDoc
}

// CombinedSchema returns the single-pass grammar carrying entities and
// relationships together.
func CombinedSchema() json.RawMessage {
	combinedSchemaOnce.Do(func() {
		combinedSchemaDoc = mustMarshal(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entities": map[string]interface{}{
					"type":  "array",
					"items": entityItemSchema(types.AllEntityTypes()),
				},
				"relationships": map[string]interface{}{
					"type":  "array",
					"items": relationshipItemSchema(),
				},
			},
			"required":             []string{"entities", "relationships"},
			"additionalProperties": false,
		})
	})
	return combinedSchemaDoc
}
