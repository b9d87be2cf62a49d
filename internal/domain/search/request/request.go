package request

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum query length kept after sanitization.
	MaxQueryLength = 500
	DefaultLimit   = 15
	MaxLimit       = 50
	// DefaultVectorWeight is the vector share of the hybrid score.
	DefaultVectorWeight = 0.7
)

// injectionPatterns are stripped from user input before it can reach a
// prompt downstream. Replaced, not rejected: the rest of the query is
// still a legitimate search.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions?`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	regexp.MustCompile(`(?i)act\s+as`),
	regexp.MustCompile(`(?i)role\s*:\s*system`),
	regexp.MustCompile(`(?i)<\s*system\s*>`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)\[/INST\]`),
}

// Request is a sanitized, validated search query.
type Request struct {
	query        string
	searchMode   mode.Mode
	filters      filter.Filters
	limit        int
	vectorWeight float64
}

// New sanitizes and validates search parameters.
// Defaults: mode=hybrid, limit=15, vectorWeight=0.7.
func New(
	query string,
	m mode.Mode,
	filters filter.Filters,
	limit int,
	vectorWeight *float64,
) (Request, error) {
	query = Sanitize(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode %q: %w", m, domain.ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	w := DefaultVectorWeight
	if vectorWeight != nil {
		w = *vectorWeight
		if w < 0 || w > 1 {
			return Request{}, fmt.Errorf("vector_weight must be between 0 and 1: %w", domain.ErrInvalidQuery)
		}
	}

	return Request{
		query:        query,
		searchMode:   m,
		filters:      filters,
		limit:        limit,
		vectorWeight: w,
	}, nil
}

// Sanitize strips prompt-injection patterns and caps the length. Exposed so
// the classify boundary can run the same cleanup on raw curator queries.
func Sanitize(query string) string {
	s := strings.TrimSpace(query)
	for _, p := range injectionPatterns {
		s = p.ReplaceAllString(s, "[FILTERED]")
	}
	runes := []rune(s)
	if len(runes) > MaxQueryLength {
		s = string(runes[:MaxQueryLength]) + "..."
	}
	return s
}

// Query returns the sanitized query text.
func (r *Request) Query() string { return r.query }

// Mode returns the requested retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the attribute constraints.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// VectorWeight returns the vector share of the hybrid score.
func (r *Request) VectorWeight() float64 { return r.vectorWeight }

// WithFilters returns a copy carrying the given filters. Used after
// extraction enriches a request that arrived without explicit constraints.
func (r Request) WithFilters(f filter.Filters) Request {
	r.filters = f
	return r
}
