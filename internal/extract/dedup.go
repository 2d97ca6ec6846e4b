package extract

import (
	"strings"

	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// dedupEntities collapses duplicates under the identity key
// (entity_type, lowercased stripped text). First occurrence wins, so
// earlier waves and earlier chunks keep priority and output order is
// stable across runs. In fuzzy mode, entities of the same type whose
// normalized texts are within the similarity threshold also merge; the
// kept instance is upgraded to the highest confidence seen. The alias
// map translates every input entity ID to the ID of its surviving
// instance so relationship endpoints can follow merges.
func dedupEntities(entities []types.Entity, mode string, threshold float64) ([]types.Entity, map[string]string, int) {
	seen := len(entities)
	byKey := make(map[string]int, seen)
	alias := make(map[string]string, seen)
	var kept []types.Entity

	for _, e := range entities {
		key := e.IdentityKey()
		if idx, ok := byKey[key]; ok {
			if e.Confidence > kept[idx].Confidence {
				kept[idx].Confidence = e.Confidence
			}
			alias[e.ID] = kept[idx].ID
			continue
		}
		if mode == "fuzzy" {
			if idx, ok := fuzzyMatch(kept, e, threshold); ok {
				if e.Confidence > kept[idx].Confidence {
					kept[idx].Confidence = e.Confidence
				}
				alias[e.ID] = kept[idx].ID
				continue
			}
		}
		byKey[key] = len(kept)
		alias[e.ID] = e.ID
		kept = append(kept, e)
	}
	if dropped := seen - len(kept); dropped > 0 {
		logging.ExtractDebug("dedup collapsed %d of %d entities", dropped, seen)
	}
	return kept, alias, seen
}

// remapRelationships rewrites endpoints through the dedup alias map and
// drops anything left dangling or self-referential after the rewrite.
func remapRelationships(rels []types.Relationship, alias map[string]string) ([]types.Relationship, int) {
	var kept []types.Relationship
	dropped := 0
	for _, r := range rels {
		src, okS := alias[r.SourceEntityID]
		dst, okT := alias[r.TargetEntityID]
		if !okS || !okT || src == dst {
			dropped++
			continue
		}
		r.SourceEntityID, r.TargetEntityID = src, dst
		kept = append(kept, r)
	}
	return kept, dropped
}

func fuzzyMatch(kept []types.Entity, e types.Entity, threshold float64) (int, bool) {
	if threshold <= 0 {
		return 0, false
	}
	target := normalizeText(e.Text)
	for i := range kept {
		if kept[i].EntityType != e.EntityType {
			continue
		}
		if textSimilarity(normalizeText(kept[i].Text), target) >= threshold {
			return i, true
		}
	}
	return 0, false
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// textSimilarity is a token-set Jaccard ratio in [0,1].
func textSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	setA := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		setB[w] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// dedupRelationships collapses duplicates under (source, type, target),
// first occurrence wins.
func dedupRelationships(rels []types.Relationship) []types.Relationship {
	seen := make(map[string]struct{}, len(rels))
	var kept []types.Relationship
	for _, r := range rels {
		key := r.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept
}
