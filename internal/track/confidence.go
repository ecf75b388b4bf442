package track

// Confidence is a coarse certainty tier shared by compilation detection and
// year reconciliation.
type Confidence string

// Confidence tiers, weakest first.
const (
	ConfidenceNone     Confidence = "none"
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// Rank orders tiers so they can be compared; unknown values rank lowest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	case ConfidenceVeryHigh:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether c is as strong as other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.Rank() >= other.Rank()
}
