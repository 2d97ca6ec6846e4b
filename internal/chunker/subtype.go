package chunker

import (
	"regexp"
	"strings"
)

// Subtype is the detected legal document kind, used to pick a chunking
// strategy.
type Subtype string

const (
	SubtypeContract Subtype = "contract"
	SubtypeOpinion  Subtype = "opinion"
	SubtypeStatute  Subtype = "statute"
	SubtypeBrief    Subtype = "brief"
	SubtypeProse    Subtype = "prose"
	SubtypeUnknown  Subtype = "unknown"
)

// StrategyName maps a subtype to the chunking strategy recorded on each
// chunk.
func (s Subtype) StrategyName() string {
	switch s {
	case SubtypeOpinion:
		return "legal_aware"
	case SubtypeContract, SubtypeStatute:
		return "section_aware"
	case SubtypeBrief:
		return "paragraph_aware"
	case SubtypeProse:
		// No paragraph structure to snap to; cut at sentence ends.
		return "sentence_aware"
	default:
		// Unclassified documents still snap to paragraph and sentence
		// boundaries; fixed-size word cuts are the automatic fallback
		// when no structure is found near a cut point.
		return "paragraph_aware"
	}
}

var (
	contractMarkers = []string{
		"WHEREAS", "NOW, THEREFORE", "THIS AGREEMENT", "hereinafter",
		"the parties agree", "IN WITNESS WHEREOF", "the Effective Date",
	}
	opinionMarkers = []string{
		"delivered the opinion", "We hold", "we hold", "certiorari",
		"appellant", "appellee", "the judgment of the", "dissenting",
		"concurring", "REVERSED", "AFFIRMED", "It is so ordered",
	}
	statuteMarkers = []string{
		"is amended", "is hereby amended", "shall be construed",
		"U.S.C.", "Be it enacted", "This Act may be cited",
	}
	briefMarkers = []string{
		"COMES NOW", "respectfully submit", "respectfully requests",
		"MEMORANDUM IN SUPPORT", "MEMORANDUM OF LAW", "STATEMENT OF FACTS",
		"Plaintiff", "Defendant", "moves this Court",
	}
)

var subsectionPattern = regexp.MustCompile(`(?m)^\s*\([a-z0-9]{1,3}\)\s`)

// DetectSubtype classifies a document by counting marker phrases per
// family; the sample is capped so huge documents stay cheap to classify.
func DetectSubtype(text string) Subtype {
	sample := text
	if len(sample) > 20_000 {
		sample = sample[:20_000]
	}

	scores := map[Subtype]int{
		SubtypeContract: countMarkers(sample, contractMarkers),
		SubtypeOpinion:  countMarkers(sample, opinionMarkers),
		SubtypeStatute:  countMarkers(sample, statuteMarkers),
		SubtypeBrief:    countMarkers(sample, briefMarkers),
	}
	// Dense "(a)", "(1)" subsection structure is a statute signal.
	if n := len(subsectionPattern.FindAllStringIndex(sample, 20)); n >= 8 {
		scores[SubtypeStatute] += 2
	}

	best := SubtypeUnknown
	bestScore := 0
	for _, s := range []Subtype{SubtypeOpinion, SubtypeStatute, SubtypeContract, SubtypeBrief} {
		if scores[s] > bestScore {
			best, bestScore = s, scores[s]
		}
	}
	if bestScore < 2 {
		// Marker-free text without paragraph breaks is running prose.
		if !strings.Contains(sample, "\n\n") {
			return SubtypeProse
		}
		return SubtypeUnknown
	}
	return best
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(text, m) {
			n++
		}
	}
	return n
}
