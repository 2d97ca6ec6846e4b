package sizing

import (
	"strings"
	"testing"

	"lexgraph/internal/config"
	"lexgraph/internal/types"
)

func newTestDetector() *Detector {
	return NewDetector(config.Default().Sizing)
}

func TestDetectEmpty(t *testing.T) {
	info := newTestDetector().Detect("")
	if info.Category != types.SizeEmpty {
		t.Errorf("expected EMPTY, got %s", info.Category)
	}
	if info.Chars != 0 || info.Words != 0 || info.Lines != 0 {
		t.Errorf("expected zero counts, got %+v", info)
	}
}

func TestDetectBinaryGarbage(t *testing.T) {
	// Mostly NUL bytes with a little text sprinkled in.
	text := "ab" + strings.Repeat("\x00", 100)
	info := newTestDetector().Detect(text)
	if info.Category != types.SizeInvalid {
		t.Errorf("expected INVALID, got %s", info.Category)
	}
}

func TestDetectControlCharsBelowRatio(t *testing.T) {
	// Plenty of real text with a few stray control characters stays valid.
	text := strings.Repeat("The court held that the motion was granted. ", 200) + "\x01\x02"
	info := newTestDetector().Detect(text)
	if info.Category == types.SizeInvalid {
		t.Error("text with minor control noise should not be INVALID")
	}
}

func TestCategoryBoundaries(t *testing.T) {
	d := newTestDetector()
	cases := []struct {
		chars int
		want  types.SizeCategory
	}{
		{1, types.SizeVerySmall},
		{4_999, types.SizeVerySmall},
		{5_000, types.SizeSmall},
		{50_000, types.SizeSmall},
		{50_001, types.SizeMedium},
		{150_000, types.SizeMedium},
		{150_001, types.SizeLarge},
	}
	for _, tc := range cases {
		info := d.Detect(strings.Repeat("a", tc.chars))
		if info.Category != tc.want {
			t.Errorf("chars=%d: expected %s, got %s", tc.chars, tc.want, info.Category)
		}
	}
}

func TestCharsCountRunesNotBytes(t *testing.T) {
	text := strings.Repeat("§", 100) // section sign, 2 bytes each
	info := newTestDetector().Detect(text)
	if info.Chars != 100 {
		t.Errorf("expected 100 runes, got %d", info.Chars)
	}
}

func TestPagesEstimate(t *testing.T) {
	info := newTestDetector().Detect(strings.Repeat("a", 3_600))
	if info.PagesEstimate != 2 {
		t.Errorf("expected 2 pages, got %d", info.PagesEstimate)
	}
	info = newTestDetector().Detect(strings.Repeat("a", 3_601))
	if info.PagesEstimate != 3 {
		t.Errorf("expected partial page to round up, got %d", info.PagesEstimate)
	}
}

func TestLineCounting(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"one line", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n\n\n", 3},
	}
	for _, tc := range cases {
		if got := countLines(tc.text); got != tc.want {
			t.Errorf("countLines(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestHeuristicEstimator(t *testing.T) {
	est := HeuristicEstimator{Multiplier: 1.1}
	text := strings.Repeat("a", 4_000)
	got := est.Estimate(text)
	if got != 1_100 {
		t.Errorf("expected 1100 tokens, got %d", got)
	}
	if est.Estimate("") != 0 {
		t.Error("empty text should estimate 0 tokens")
	}
}

func TestHeuristicEstimatorDefaultMultiplier(t *testing.T) {
	est := HeuristicEstimator{}
	if got := est.Estimate(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("expected 100 tokens with default multiplier, got %d", got)
	}
}

func TestWordEstimator(t *testing.T) {
	est := WordEstimator{}
	got := est.Estimate("the quick brown fox jumps over the lazy dog fence")
	if got != 13 {
		t.Errorf("expected ceil(10*1.3)=13, got %d", got)
	}
}
