package chunker

import (
	"strings"
	"testing"

	"lexgraph/internal/config"
	"lexgraph/internal/types"
)

func testChunker() *Chunker {
	return New(config.Default().Chunking, nil)
}

// Builds a synthetic opinion-like document of roughly n characters made
// of paragraph-separated sentences.
func syntheticDocument(n int) string {
	var b strings.Builder
	para := "The district court granted summary judgment for the defendant. " +
		"On appeal, the panel reviewed the record de novo and considered the briefing of both parties. " +
		"The statute requires notice within ninety days of the alleged violation.\n\n"
	for b.Len() < n {
		b.WriteString(para)
	}
	return b.String()[:n]
}

func TestTargetChars(t *testing.T) {
	c := testChunker()
	// floor(16384*0.75)-2048 = 10240 tokens -> 40960 chars, clamped to 40000.
	if got := c.TargetChars(); got != 40_000 {
		t.Errorf("TargetChars = %d, want 40000", got)
	}
}

func TestSplitCoversDocument(t *testing.T) {
	text := syntheticDocument(200_000)
	chunks, stats := testChunker().Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if stats.TotalChunks != len(chunks) {
		t.Errorf("stats.TotalChunks=%d, len=%d", stats.TotalChunks, len(chunks))
	}

	// First chunk starts at 0, last ends at document end, no gaps.
	if chunks[0].StartPos != 0 {
		t.Errorf("first chunk starts at %d", chunks[0].StartPos)
	}
	docLen := len([]rune(text))
	if chunks[len(chunks)-1].EndPos != docLen {
		t.Errorf("last chunk ends at %d, want %d", chunks[len(chunks)-1].EndPos, docLen)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartPos > chunks[i-1].EndPos {
			t.Errorf("gap between chunk %d and %d: %d > %d",
				i-1, i, chunks[i].StartPos, chunks[i-1].EndPos)
		}
	}

	// Total chunk length >= document length (equality only without overlap).
	total := 0
	for _, ch := range chunks {
		total += ch.Len()
	}
	if total < docLen {
		t.Errorf("sum of chunk lengths %d < document length %d", total, docLen)
	}
}

func TestSplitChunkTextMatchesPositions(t *testing.T) {
	text := syntheticDocument(100_000)
	runes := []rune(text)
	chunks, _ := testChunker().Split(text)
	for _, ch := range chunks {
		if got := string(runes[ch.StartPos:ch.EndPos]); got != ch.Text {
			t.Fatalf("chunk %d text does not match positions", ch.Index)
		}
	}
}

func TestSplitNoOverlap(t *testing.T) {
	cfg := config.Default().Chunking
	cfg.OverlapChars = 0
	text := syntheticDocument(150_000)
	chunks, _ := New(cfg, nil).Split(text)

	total := 0
	for i, ch := range chunks {
		total += ch.Len()
		if ch.HasOverlap {
			t.Errorf("chunk %d has overlap with overlap disabled", i)
		}
	}
	if total != len([]rune(text)) {
		t.Errorf("without overlap chunks must tile exactly: sum=%d doc=%d", total, len([]rune(text)))
	}
}

func TestSplitRespectsMinChars(t *testing.T) {
	cfg := config.Default().Chunking
	text := syntheticDocument(180_000)
	chunks, _ := New(cfg, nil).Split(text)
	for i, ch := range chunks {
		if i == len(chunks)-1 {
			continue // the last chunk may be short
		}
		if ch.Len() < cfg.MinChars {
			t.Errorf("chunk %d length %d below min %d", i, ch.Len(), cfg.MinChars)
		}
	}
}

func TestSplitHardCap(t *testing.T) {
	cfg := config.Default().Chunking
	cfg.MaxChunksPerDocument = 3
	text := syntheticDocument(250_000)
	chunks, stats := New(cfg, nil).Split(text)
	if len(chunks) > 3 {
		t.Errorf("got %d chunks, cap is 3", len(chunks))
	}
	if stats.MergedNeighbors == 0 {
		t.Error("expected neighbor merges when cap is exceeded")
	}
}

func TestSplitNeverCutsCitation(t *testing.T) {
	cfg := config.Default().Chunking
	cfg.MaxChars = 4_000
	cfg.MinChars = 1_000
	cfg.OverlapChars = 0

	citation := "Brown v. Board of Education, 347 U.S. 483 (1954)"
	filler := strings.Repeat("The parties dispute the controlling standard of review here. ", 30)
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString(filler)
		b.WriteString("As held in ")
		b.WriteString(citation)
		b.WriteString(", the doctrine controls. ")
	}
	text := b.String()

	chunks, _ := New(cfg, nil).Split(text)
	if len(chunks) < 2 {
		t.Fatal("document did not chunk")
	}
	for _, ch := range chunks {
		// No chunk may end mid-citation: if the chunk text contains the
		// start of the citation it must contain all of it, unless the
		// remainder is covered by overlap into the next chunk.
		idx := strings.LastIndex(ch.Text, "347 U.S.")
		if idx >= 0 && !strings.Contains(ch.Text[idx:], "483") {
			t.Errorf("chunk %d ends inside a reporter citation", ch.Index)
		}
	}
}

func TestSplitOverlapMetadata(t *testing.T) {
	text := syntheticDocument(150_000)
	chunks, stats := testChunker().Split(text)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		wantOverlap := prev.EndPos - cur.StartPos
		if wantOverlap < 0 {
			wantOverlap = 0
		}
		if cur.OverlapBeforeChars != wantOverlap {
			t.Errorf("chunk %d OverlapBeforeChars=%d, want %d", i, cur.OverlapBeforeChars, wantOverlap)
		}
		if wantOverlap > 0 && !cur.HasOverlap {
			t.Errorf("chunk %d should report overlap", i)
		}
	}
	if stats.OverlapChars == 0 {
		t.Error("expected nonzero total overlap with default config")
	}
}

func TestSplitBoundaryKindsRecorded(t *testing.T) {
	text := syntheticDocument(150_000)
	_, stats := testChunker().Split(text)
	total := 0
	for _, n := range stats.BoundaryKinds {
		total += n
	}
	if total != stats.TotalChunks {
		t.Errorf("boundary kind counts %d do not sum to chunk count %d", total, stats.TotalChunks)
	}
}

func TestSplitUnicodePositionsAreRunes(t *testing.T) {
	cfg := config.Default().Chunking
	cfg.MaxChars = 3_000
	cfg.MinChars = 500
	para := "Der Bundesgerichtshof entschied über die Revision der Klägerin am § 823. " // multibyte runes
	text := strings.Repeat(para+"\n\n", 200)
	chunks, _ := New(cfg, nil).Split(text)
	runes := []rune(text)
	for _, ch := range chunks {
		if string(runes[ch.StartPos:ch.EndPos]) != ch.Text {
			t.Fatalf("chunk %d rune positions wrong", ch.Index)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := syntheticDocument(180_000)
	chunks, _ := testChunker().Split(text)
	structural := 0
	for _, ch := range chunks {
		switch ch.BoundaryKind {
		case types.BoundarySection, types.BoundaryParagraph, types.BoundarySentence:
			structural++
		}
	}
	if structural == 0 {
		t.Error("paragraph-separated text should produce structural cut points")
	}
}

func TestSplitSentenceAwareProse(t *testing.T) {
	// One long unbroken paragraph: no section or paragraph structure, so
	// chunks must come from sentence tokenization.
	sentence := "The witness described the events of that evening in considerable detail. "
	text := strings.Repeat(sentence, 2_000)
	chunks, _ := testChunker().Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.ChunkType != "sentence_aware" {
			t.Fatalf("chunk %d strategy = %q, want sentence_aware", ch.Index, ch.ChunkType)
		}
	}
	sentenceCuts := 0
	for _, ch := range chunks[:len(chunks)-1] {
		if ch.BoundaryKind == types.BoundarySentence {
			sentenceCuts++
		}
	}
	if sentenceCuts == 0 {
		t.Error("prose with sentence structure should cut at sentence ends")
	}
}

func TestDetectSubtype(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Subtype
	}{
		{
			"contract",
			"THIS AGREEMENT is made as of the Effective Date. WHEREAS the parties agree as follows. IN WITNESS WHEREOF the parties execute this agreement.",
			SubtypeContract,
		},
		{
			"opinion",
			"Justice Harlan delivered the opinion of the Court. We hold that the statute applies. The judgment is AFFIRMED. It is so ordered.",
			SubtypeOpinion,
		},
		{
			"statute",
			"Be it enacted by the Senate. Section 2 of title 5, U.S.C., is amended by striking subsection (b). This Act may be cited as the Example Act.",
			SubtypeStatute,
		},
		{
			"brief",
			"MEMORANDUM IN SUPPORT of the motion. Plaintiff respectfully submits this brief. COMES NOW the Defendant and moves this Court for relief.",
			SubtypeBrief,
		},
		{"prose", "Some entirely generic text with no legal markers and no paragraph breaks at all.", SubtypeProse},
		{"unknown", "Some entirely generic text.\n\nSplit into paragraphs.\n\nStill no legal markers.", SubtypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSubtype(tc.text); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestPreservedSpanDetection(t *testing.T) {
	text := `See Smith v. Jones, 123 U.S. 456 (2020); 42 U.S.C. § 1983; 29 C.F.R. 1604.11. The court said "this is a substantial quotation from the record below."`
	spans := detectPreservedSpans(text)
	if len(spans) == 0 {
		t.Fatal("expected preserved spans")
	}
	// Spans are sorted and non-overlapping after merging.
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			t.Errorf("spans %d and %d overlap after merge", i-1, i)
		}
	}
	// The U.S.C. citation must be covered.
	uscStart := strings.Index(text, "42 U.S.C.")
	covered := false
	for _, s := range spans {
		if s.start <= uscStart && uscStart < s.end {
			covered = true
		}
	}
	if !covered {
		t.Error("U.S.C. citation not covered by a preserved span")
	}
}

func TestShortQuoteNotPreserved(t *testing.T) {
	spans := detectPreservedSpans(`He said "no" and left.`)
	for _, s := range spans {
		if s.end-s.start < minQuotedRun {
			t.Errorf("span [%d,%d) below minimum quoted run", s.start, s.end)
		}
	}
}

func TestMergeSpans(t *testing.T) {
	got := mergeSpans([]span{{10, 20}, {15, 30}, {40, 50}, {5, 12}})
	want := []span{{5, 30}, {40, 50}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
