// Package router maps a document's size profile and the caller's
// relationship flag to a processing strategy. Routing is a pure
// function of its inputs; the same SizeInfo always routes the same way.
package router

import (
	"fmt"

	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// minExtractableChars is the floor below which no legal entity span can
// plausibly exist; whitespace-only text also falls through here because
// it has zero words.
const minExtractableChars = 25

// Decision is the router's output: a strategy plus a human-readable
// rationale recorded in result metadata.
type Decision struct {
	Strategy  types.Strategy
	Rationale string
}

// Route selects the strategy for a document.
func Route(info types.SizeInfo, extractRelationships bool) Decision {
	d := route(info, extractRelationships)
	logging.Routing("category=%s relationships=%v -> %s (%s)",
		info.Category, extractRelationships, d.Strategy, d.Rationale)
	return d
}

func route(info types.SizeInfo, extractRelationships bool) Decision {
	switch info.Category {
	case types.SizeEmpty:
		return Decision{
			Strategy:  types.StrategyEmptyDocument,
			Rationale: "document is empty; nothing to extract",
		}
	case types.SizeInvalid:
		return Decision{
			Strategy:  types.StrategyInvalidDocument,
			Rationale: "document content is not plausible text; skipping extraction",
		}
	case types.SizeVerySmall:
		if info.Words == 0 || info.Chars < minExtractableChars {
			return Decision{
				Strategy:  types.StrategyTooSmall,
				Rationale: fmt.Sprintf("%d chars / %d words is below the extractable minimum", info.Chars, info.Words),
			}
		}
		if extractRelationships {
			return Decision{
				Strategy:  types.StrategySinglePass,
				Rationale: fmt.Sprintf("%d chars fits a single combined entity+relationship call", info.Chars),
			}
		}
		return Decision{
			Strategy:  types.StrategySinglePass,
			Rationale: fmt.Sprintf("%d chars fits a single extraction call", info.Chars),
		}
	case types.SizeSmall, types.SizeMedium:
		if extractRelationships {
			return Decision{
				Strategy:  types.StrategyFourWave,
				Rationale: fmt.Sprintf("%d chars: three entity waves plus a relationship wave", info.Chars),
			}
		}
		return Decision{
			Strategy:  types.StrategyThreeWave,
			Rationale: fmt.Sprintf("%d chars: three sequential entity waves", info.Chars),
		}
	case types.SizeLarge:
		// Relationship extraction needs the full entity set in one model
		// context, which chunking forecloses.
		return Decision{
			Strategy:  types.StrategyThreeWaveChunked,
			Rationale: fmt.Sprintf("%d chars exceeds single-context processing; chunked entity waves, relationships skipped", info.Chars),
		}
	default:
		return Decision{
			Strategy:  types.StrategyInvalidDocument,
			Rationale: fmt.Sprintf("unrecognized size category %q", info.Category),
		}
	}
}
