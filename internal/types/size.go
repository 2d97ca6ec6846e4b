package types

// SizeCategory classifies a document by size for routing.
type SizeCategory string

const (
	SizeEmpty     SizeCategory = "EMPTY"      // zero characters
	SizeInvalid   SizeCategory = "INVALID"    // implausible non-text content
	SizeVerySmall SizeCategory = "VERY_SMALL" // < very-small threshold
	SizeSmall     SizeCategory = "SMALL"      // <= small threshold
	SizeMedium    SizeCategory = "MEDIUM"     // <= medium threshold
	SizeLarge     SizeCategory = "LARGE"      // > medium threshold
)

// SizeInfo is the size profile computed by the detector. It is derived
// solely from the document text and the token estimator in use.
type SizeInfo struct {
	Chars          int          `json:"chars"`
	Words          int          `json:"words"`
	Lines          int          `json:"lines"`
	TokensEstimate int          `json:"tokens_estimate"`
	PagesEstimate  int          `json:"pages_estimate"`
	Category       SizeCategory `json:"category"`
}
