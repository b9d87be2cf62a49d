package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid combines vector and lexical retrieval with a weighted merge.
	Hybrid Mode = "hybrid"
	// Vector uses embedding similarity only.
	Vector Mode = "vector"
	// Traditional uses lexical scoring over the catalog only.
	Traditional Mode = "traditional"
	// Fallback is never requested; it is reported when every scored path
	// came up empty and the rating-sorted fallback produced the results.
	Fallback Mode = "fallback"
)

// IsValid checks if the mode can be requested by a caller.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Vector || m == Traditional
}
