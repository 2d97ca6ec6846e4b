package types

import "fmt"

// Strategy is the processing plan selected by the router for a document.
type Strategy int

const (
	// StrategySinglePass runs one combined entity+relationship call.
	StrategySinglePass Strategy = iota
	// StrategyThreeWave runs entity waves 1-3 sequentially.
	StrategyThreeWave
	// StrategyFourWave runs waves 1-3 plus the relationship wave.
	StrategyFourWave
	// StrategyThreeWaveChunked runs waves 1-3 per chunk in parallel.
	// Relationships are not extracted in chunked mode.
	StrategyThreeWaveChunked
	// StrategyEmptyDocument short-circuits with an empty result.
	StrategyEmptyDocument
	// StrategyInvalidDocument short-circuits with an empty result.
	StrategyInvalidDocument
	// StrategyTooSmall short-circuits for sub-minimum inputs.
	StrategyTooSmall
)

func (s Strategy) String() string {
	switch s {
	case StrategySinglePass:
		return "SINGLE_PASS"
	case StrategyThreeWave:
		return "THREE_WAVE"
	case StrategyFourWave:
		return "FOUR_WAVE"
	case StrategyThreeWaveChunked:
		return "THREE_WAVE_CHUNKED"
	case StrategyEmptyDocument:
		return "EMPTY_DOCUMENT"
	case StrategyInvalidDocument:
		return "INVALID_DOCUMENT"
	case StrategyTooSmall:
		return "TOO_SMALL"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RequiresLLM reports whether the strategy makes backend calls at all.
func (s Strategy) RequiresLLM() bool {
	switch s {
	case StrategyEmptyDocument, StrategyInvalidDocument, StrategyTooSmall:
		return false
	default:
		return true
	}
}

// Chunked reports whether the strategy splits the document first.
func (s Strategy) Chunked() bool {
	return s == StrategyThreeWaveChunked
}
