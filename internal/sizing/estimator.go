package sizing

import (
	"math"
	"strings"
)

// Estimator approximates the token count of text. The engine ships two
// fast heuristics; an accurate BPE tokenizer can be plugged in by the
// caller through this interface.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator is the default fast mode: tokens ~ chars/4, scaled
// by a multiplier for legal-register text (dense citations tokenize
// worse than prose).
type HeuristicEstimator struct {
	// Multiplier adjusts the chars/4 base. 1.0 is plain prose; legal
	// text typically uses 1.1.
	Multiplier float64
}

// Estimate implements Estimator.
func (h HeuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	mult := h.Multiplier
	if mult <= 0 {
		mult = 1.0
	}
	chars := len([]rune(text))
	return int(math.Ceil(float64(chars) / 4.0 * mult))
}

// WordEstimator approximates tokens ~ words * 1.3.
type WordEstimator struct{}

// Estimate implements Estimator.
func (WordEstimator) Estimate(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}
