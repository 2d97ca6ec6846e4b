package chunker

import (
	"regexp"
	"sort"
	"strconv"
)

// ---------------------------------------------------------------------------
// Preserved spans
// ---------------------------------------------------------------------------

// minQuotedRun is the shortest quoted passage treated as uncuttable.
const minQuotedRun = 10

// Citation and quotation patterns. A cut landing inside any of these
// would split a span the extractor must see whole, so the chunker pushes
// such cuts past the span end.
var (
	reporterCitationPattern = regexp.MustCompile(
		`\b\d+\s+(?:U\.S\.|S\.\s?Ct\.|L\.\s?Ed\.(?:\s?2d)?|F\.(?:2d|3d|4th)?|F\.\s?Supp\.(?:\s?[23]d)?|P\.(?:2d|3d)?|N\.E\.(?:2d|3d)?|N\.W\.(?:2d)?|S\.E\.(?:2d)?|S\.W\.(?:2d|3d)?|A\.(?:2d|3d)?|So\.\s?(?:2d|3d)?|Cal\.\s?Rptr\.(?:\s?[23]d)?)\s+\d+(?:,\s*\d+(?:-\d+)?)?(?:\s+\(\d{4}\))?`)

	uscPattern = regexp.MustCompile(`\b\d+\s+U\.S\.C\.(?:A\.)?\s+§{1,2}\s*[\dA-Za-z\-.()]+`)

	cfrPattern = regexp.MustCompile(`\b\d+\s+C\.F\.R\.\s+(?:§{1,2}\s*)?[\d.\-()]+`)

	caseNamePattern = regexp.MustCompile(
		`\b[A-Z][A-Za-z'.\-]+(?:\s+[A-Z][A-Za-z'.\-]+){0,4}\s+v\.\s+[A-Z][A-Za-z'.\-]+(?:\s+[A-Z][A-Za-z'.\-]+){0,4}`)

	quotedRunPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"[^"]{` + strconv.Itoa(minQuotedRun) + `,}"`),
		regexp.MustCompile("“[^”]{" + strconv.Itoa(minQuotedRun) + ",}”"),
	}
)

// span is a half-open byte interval [start, end) within the document.
type span struct {
	start, end int
}

// detectPreservedSpans returns the merged, sorted byte intervals that
// must not be cut: citations and substantial quoted runs.
func detectPreservedSpans(text string) []span {
	var spans []span
	patterns := []*regexp.Regexp{
		reporterCitationPattern, uscPattern, cfrPattern, caseNamePattern,
	}
	patterns = append(patterns, quotedRunPatterns...)
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1]})
		}
	}
	return mergeSpans(spans)
}

func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// spanContaining returns the preserved span that strictly contains pos,
// if any. Spans are sorted; binary search keeps this cheap per cut.
func spanContaining(spans []span, pos int) (span, bool) {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > pos })
	if i < len(spans) && spans[i].start < pos && pos < spans[i].end {
		return spans[i], true
	}
	return span{}, false
}

// ---------------------------------------------------------------------------
// Structural boundaries
// ---------------------------------------------------------------------------

// sectionHeaderPattern matches explicit section and article headers at
// the start of a line.
var sectionHeaderPattern = regexp.MustCompile(
	`(?m)^\s*(?:ARTICLE\s+[IVXLCDM\d]+|SECTION\s+\d+(?:\.\d+)*|Section\s+\d+(?:\.\d+)*|§{1,2}\s*\d[\w.\-]*|[IVXLCDM]+\.\s+[A-Z])`)

// sectionBoundaries returns byte offsets where section headers begin.
func sectionBoundaries(text string) []int {
	locs := sectionHeaderPattern.FindAllStringIndex(text, -1)
	out := make([]int, 0, len(locs))
	for _, loc := range locs {
		out = append(out, loc[0])
	}
	return out
}

// paragraphBoundaries returns byte offsets immediately after each
// blank-line separator.
var paragraphSepPattern = regexp.MustCompile(`\n[ \t]*\n+`)

func paragraphBoundaries(text string) []int {
	locs := paragraphSepPattern.FindAllStringIndex(text, -1)
	out := make([]int, 0, len(locs))
	for _, loc := range locs {
		out = append(out, loc[1])
	}
	return out
}

// sentenceBoundaries returns byte offsets immediately after terminal
// punctuation followed by whitespace. Abbreviation-heavy legal prose
// makes this approximate; preserved spans keep citations safe anyway.
func sentenceBoundaries(text string) []int {
	var out []int
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if c != '.' && c != '?' && c != '!' {
			continue
		}
		next := text[i+1]
		if next == ' ' || next == '\n' || next == '\t' {
			out = append(out, i+1)
		}
	}
	return out
}

// nearestBoundaryAtOrBefore returns the largest boundary b with
// lowerBound <= b <= pos, or -1.
func nearestBoundaryAtOrBefore(boundaries []int, pos, lowerBound int) int {
	i := sort.SearchInts(boundaries, pos+1) - 1
	if i < 0 || boundaries[i] < lowerBound {
		return -1
	}
	return boundaries[i]
}
