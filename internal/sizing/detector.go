// Package sizing computes the size profile of a document and classifies
// it for routing. Detection is pure text analysis; no backend calls.
package sizing

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"lexgraph/internal/config"
	"lexgraph/internal/logging"
	"lexgraph/internal/types"
)

// charsPerPage is the conventional page estimate for legal documents.
const charsPerPage = 1800

// invalidControlRatio marks a document INVALID when more than this
// fraction of its runes are control characters or encoding garbage.
const invalidControlRatio = 0.5

// Detector classifies documents by size using configured thresholds.
type Detector struct {
	thresholdVerySmall int
	thresholdSmall     int
	thresholdMedium    int
	estimator          Estimator
}

// NewDetector builds a Detector from sizing configuration using the
// default heuristic estimator.
func NewDetector(cfg config.SizingConfig) *Detector {
	return NewDetectorWithEstimator(cfg, HeuristicEstimator{Multiplier: cfg.LegalTokenMultiplier})
}

// NewDetectorWithEstimator builds a Detector with a caller-supplied
// token estimator.
func NewDetectorWithEstimator(cfg config.SizingConfig, est Estimator) *Detector {
	return &Detector{
		thresholdVerySmall: cfg.ThresholdVerySmall,
		thresholdSmall:     cfg.ThresholdSmall,
		thresholdMedium:    cfg.ThresholdMedium,
		estimator:          est,
	}
}

// Detect computes the size profile for a document's text.
func (d *Detector) Detect(text string) types.SizeInfo {
	chars := len([]rune(text))
	info := types.SizeInfo{
		Chars:          chars,
		Words:          len(strings.Fields(text)),
		Lines:          countLines(text),
		TokensEstimate: d.estimator.Estimate(text),
		PagesEstimate:  (chars + charsPerPage - 1) / charsPerPage,
	}
	info.Category = d.categorize(text, chars)

	logging.Get(logging.CategorySizing).Debug("detect: chars=%d words=%d tokens~%d category=%s",
		info.Chars, info.Words, info.TokensEstimate, info.Category)
	return info
}

func (d *Detector) categorize(text string, chars int) types.SizeCategory {
	if chars == 0 {
		return types.SizeEmpty
	}
	if looksBinary(text) {
		return types.SizeInvalid
	}
	switch {
	case chars < d.thresholdVerySmall:
		return types.SizeVerySmall
	case chars <= d.thresholdSmall:
		return types.SizeSmall
	case chars <= d.thresholdMedium:
		return types.SizeMedium
	default:
		return types.SizeLarge
	}
}

// looksBinary reports whether the text is implausible as a document:
// more than half of its runes are control characters, NUL bytes, or
// UTF-8 replacement runes from a botched decode.
func looksBinary(text string) bool {
	total := 0
	suspect := 0
	for _, r := range text {
		total++
		switch {
		case r == '\n', r == '\r', r == '\t':
			// legitimate whitespace
		case r == 0, r == utf8.RuneError:
			suspect++
		case unicode.IsControl(r):
			suspect++
		}
	}
	if total == 0 {
		return false
	}
	return float64(suspect)/float64(total) > invalidControlRatio
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
