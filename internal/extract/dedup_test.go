package extract

import (
	"testing"

	"lexgraph/internal/types"
)

func ent(id, text string, et types.EntityType, conf float64) types.Entity {
	return types.Entity{ID: id, Text: text, EntityType: et, Confidence: conf}
}

func TestDedupExactFirstOccurrenceWins(t *testing.T) {
	in := []types.Entity{
		ent("d_e0", "Judge Alsup", types.EntityJudge, 0.9),
		ent("d_e1", "Smith v. Jones", types.EntityCaseName, 0.8),
		ent("d_e2", "judge alsup", types.EntityJudge, 0.95),
		ent("d_e3", "  Smith v. Jones  ", types.EntityCaseName, 0.7),
	}
	kept, alias, seen := dedupEntities(in, "exact", 0)
	if seen != 4 || len(kept) != 2 {
		t.Fatalf("kept %d of %d", len(kept), seen)
	}
	if kept[0].ID != "d_e0" || kept[1].ID != "d_e1" {
		t.Errorf("first occurrence must win: %q, %q", kept[0].ID, kept[1].ID)
	}
	// Merged instance keeps the highest confidence seen.
	if kept[0].Confidence != 0.95 {
		t.Errorf("confidence = %v, want upgraded 0.95", kept[0].Confidence)
	}
	if alias["d_e2"] != "d_e0" || alias["d_e3"] != "d_e1" {
		t.Errorf("alias = %v", alias)
	}
	if alias["d_e0"] != "d_e0" {
		t.Error("surviving ids must map to themselves")
	}
}

func TestDedupIdempotent(t *testing.T) {
	in := []types.Entity{
		ent("a", "Alpha Corp.", types.EntityCorporation, 0.9),
		ent("b", "alpha corp.", types.EntityCorporation, 0.8),
		ent("c", "Beta LLC", types.EntityCorporation, 0.9),
	}
	once, _, _ := dedupEntities(in, "exact", 0)
	twice, _, _ := dedupEntities(once, "exact", 0)
	if len(once) != len(twice) {
		t.Fatalf("dedup not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("order changed at %d", i)
		}
	}
}

func TestDedupFuzzyMergesNearDuplicates(t *testing.T) {
	in := []types.Entity{
		ent("a", "Smith v. Jones, 123 U.S. 456", types.EntityCaseCitation, 0.85),
		ent("b", "Smith v. Jones, 123 U.S. 456 (2020)", types.EntityCaseCitation, 0.95),
		ent("c", "Wholly Unrelated Co.", types.EntityCorporation, 0.9),
	}
	kept, alias, _ := dedupEntities(in, "fuzzy", 0.8)
	if len(kept) != 2 {
		t.Fatalf("kept %d, want near-duplicates merged", len(kept))
	}
	if kept[0].ID != "a" || kept[0].Confidence != 0.95 {
		t.Errorf("merged instance = %+v", kept[0])
	}
	if alias["b"] != "a" {
		t.Errorf("alias = %v", alias)
	}
}

func TestDedupFuzzyRespectsType(t *testing.T) {
	in := []types.Entity{
		ent("a", "Smith v. Jones", types.EntityCaseName, 0.9),
		ent("b", "Smith v. Jones", types.EntityCaseCitation, 0.9),
	}
	kept, _, _ := dedupEntities(in, "fuzzy", 0.5)
	if len(kept) != 2 {
		t.Error("different entity types must never merge")
	}
}

func TestTextSimilarity(t *testing.T) {
	if s := textSimilarity("smith v. jones", "smith v. jones"); s != 1 {
		t.Errorf("identical = %v", s)
	}
	if s := textSimilarity("alpha beta gamma", "delta epsilon"); s != 0 {
		t.Errorf("disjoint = %v", s)
	}
	s := textSimilarity("smith v. jones 123", "smith v. jones")
	if s <= 0.5 || s >= 1 {
		t.Errorf("partial overlap = %v", s)
	}
}

func TestRemapRelationships(t *testing.T) {
	alias := map[string]string{"d_e0": "d_e0", "d_e1": "d_e0", "d_e2": "d_e2"}
	rels := []types.Relationship{
		{SourceEntityID: "d_e1", TargetEntityID: "d_e2", RelationshipType: types.RelCitesCase, Confidence: 0.9},
		{SourceEntityID: "d_e0", TargetEntityID: "d_e1", RelationshipType: types.RelCitesCase, Confidence: 0.9}, // self after merge
		{SourceEntityID: "d_e0", TargetEntityID: "d_e9", RelationshipType: types.RelCitesCase, Confidence: 0.9}, // dangling
	}
	kept, dropped := remapRelationships(rels, alias)
	if len(kept) != 1 || dropped != 2 {
		t.Fatalf("kept=%d dropped=%d", len(kept), dropped)
	}
	if kept[0].SourceEntityID != "d_e0" || kept[0].TargetEntityID != "d_e2" {
		t.Errorf("remapped = %+v", kept[0])
	}
}

func TestDedupRelationships(t *testing.T) {
	rels := []types.Relationship{
		{SourceEntityID: "a", TargetEntityID: "b", RelationshipType: types.RelCitesCase, Confidence: 0.9},
		{SourceEntityID: "a", TargetEntityID: "b", RelationshipType: types.RelCitesCase, Confidence: 0.95},
		{SourceEntityID: "a", TargetEntityID: "b", RelationshipType: types.RelFollows, Confidence: 0.9},
	}
	kept := dedupRelationships(rels)
	if len(kept) != 2 {
		t.Fatalf("kept %d", len(kept))
	}
	if kept[0].Confidence != 0.9 {
		t.Error("first occurrence must win")
	}
}

func TestEnrichContext(t *testing.T) {
	text := "In Smith v. Jones, 123 U.S. 456 (2020), the Court held that the rule applies."
	runes := []rune(text)
	entities := []types.Entity{
		{Text: "Smith v. Jones, 123 U.S. 456 (2020)", StartPos: 3, EndPos: 38},
		{Text: "the rule", StartPos: 60, EndPos: 68},
	}
	enrichContext(runes, entities, 50)
	if entities[0].ContextBefore != "In " {
		t.Errorf("context_before = %q", entities[0].ContextBefore)
	}
	if entities[0].ContextAfter != string(runes[38:]) {
		t.Errorf("context_after = %q", entities[0].ContextAfter)
	}
	if len([]rune(entities[1].ContextBefore)) != 50 {
		t.Errorf("context window = %d runes", len([]rune(entities[1].ContextBefore)))
	}
}

func TestEnrichContextUnicode(t *testing.T) {
	text := "§ 101 die Würde des Menschen ist unantastbar."
	runes := []rune(text)
	entities := []types.Entity{{Text: "Würde", StartPos: 10, EndPos: 15}}
	enrichContext(runes, entities, 5)
	if entities[0].ContextBefore != " die " {
		t.Errorf("context_before = %q", entities[0].ContextBefore)
	}
	if entities[0].ContextAfter != " des " {
		t.Errorf("context_after = %q", entities[0].ContextAfter)
	}
}

func TestSoundPositions(t *testing.T) {
	text := "In Smith v. Jones, 123 U.S. 456 (2020), the Court held that the rule applies."
	runes := []rune(text)
	in := []types.Entity{
		{ID: "ok", Text: "Smith v. Jones, 123 U.S. 456 (2020)", StartPos: 3, EndPos: 38},
		{ID: "ws", Text: "the  Court", StartPos: 40, EndPos: 49},
		{ID: "shifted", Text: "Smith v. Jones, 123 U.S. 456 (2020)", StartPos: 4, EndPos: 39},
		{ID: "neg", Text: "x", StartPos: -1, EndPos: 5},
		{ID: "inverted", Text: "x", StartPos: 8, EndPos: 2},
		{ID: "beyond", Text: "x", StartPos: 0, EndPos: len(runes) + 1},
	}
	kept, dropped := soundPositions(runes, in)
	if len(kept) != 2 || dropped != 4 {
		t.Fatalf("kept=%d dropped=%d", len(kept), dropped)
	}
	// In-range span whose text does not match the document is dropped;
	// a whitespace-normalized match survives.
	if kept[0].ID != "ok" || kept[1].ID != "ws" {
		t.Errorf("kept = %q, %q", kept[0].ID, kept[1].ID)
	}
}
