package result

// Strategy identifies which retrieval path produced a candidate.
type Strategy string

// Retrieval strategies.
const (
	Lexical Strategy = "lexical"
	Vector  Strategy = "vector"
	Hybrid  Strategy = "hybrid"
)

// Candidate is a single scored product reference.
type Candidate struct {
	id       string
	score    float64
	strategy Strategy
}

// NewCandidate creates a scored candidate.
func NewCandidate(id string, score float64, strategy Strategy) Candidate {
	return Candidate{id: id, score: score, strategy: strategy}
}

// ID returns the product identifier.
func (c *Candidate) ID() string { return c.id }

// Score returns the strategy-specific relevance score.
func (c *Candidate) Score() float64 { return c.score }

// Strategy returns the retrieval path that produced this candidate.
func (c *Candidate) Strategy() Strategy { return c.strategy }

// RankedSet is an ordered, deduplicated candidate list. Construction drops
// repeated product IDs, keeping the first (highest-ranked) occurrence.
type RankedSet struct {
	candidates []Candidate
}

// NewRankedSet builds a ranked set from an already-ordered candidate list.
func NewRankedSet(candidates []Candidate) RankedSet {
	seen := make(map[string]struct{}, len(candidates))
	deduped := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.id]; ok {
			continue
		}
		seen[c.id] = struct{}{}
		deduped = append(deduped, c)
	}
	return RankedSet{candidates: deduped}
}

// IDs returns the product IDs in rank order.
func (s *RankedSet) IDs() []string {
	ids := make([]string, len(s.candidates))
	for i := range s.candidates {
		ids[i] = s.candidates[i].id
	}
	return ids
}

// Len returns the number of candidates.
func (s *RankedSet) Len() int { return len(s.candidates) }

// Truncate limits the set to at most n candidates.
func (s *RankedSet) Truncate(n int) {
	if n >= 0 && len(s.candidates) > n {
		s.candidates = s.candidates[:n]
	}
}

// Scores returns a product-ID → score map for response payloads.
func (s *RankedSet) Scores() map[string]float64 {
	m := make(map[string]float64, len(s.candidates))
	for i := range s.candidates {
		m[s.candidates[i].id] = s.candidates[i].score
	}
	return m
}
