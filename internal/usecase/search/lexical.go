package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
)

// Field-match weights. The table is ordered by precedence for readability;
// every matching rule contributes independently.
const (
	weightName        = 10
	weightCategory    = 8
	weightColor       = 6
	weightKeywords    = 5
	weightBrand       = 4
	weightMaterial    = 3
	weightTarget      = 3
	weightScene       = 3
	weightDescription = 2
	weightIsNew       = 1

	// Color overlap replaces the plain color rule when explicit color
	// filters are active.
	weightColorOverlap = 12
	weightColorMiss    = -3
)

// hit pairs a product with its relevance score on whichever scale the
// producing strategy uses.
type hit struct {
	product domain.Product
	score   float64
}

// lexicalOutcome carries the ranked hits plus whether the rating-sorted
// fallback produced them (nothing cleared the score threshold).
type lexicalOutcome struct {
	hits     []hit
	fallback bool
}

// searchLexical scores the whole catalog against the query and returns the
// top hits. An empty scored list falls back to the highest-rated products,
// so the outcome is only empty when the catalog itself is.
func (s *Service) searchLexical(ctx context.Context, req request.Request) (lexicalOutcome, error) {
	products, err := s.catalog.All(ctx)
	if err != nil {
		return lexicalOutcome{}, fmt.Errorf("load catalog: %w", err)
	}

	query := strings.ToLower(req.Query())
	f := req.Filters()

	threshold := 0.0
	if !f.IsEmpty() {
		threshold = 2.0
	}

	hits := make([]hit, 0, len(products))
	for _, p := range products {
		score := scoreProduct(&p, query, f)
		if score > threshold {
			hits = append(hits, hit{product: p, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].product.Rating > hits[j].product.Rating
	})

	if len(hits) > req.Limit() {
		hits = hits[:req.Limit()]
	}
	if len(hits) > 0 {
		return lexicalOutcome{hits: hits}, nil
	}

	return lexicalOutcome{hits: topRated(products, req.Limit()), fallback: true}, nil
}

// scoreProduct applies the weighted field-match table.
func scoreProduct(p *domain.Product, query string, f filter.Filters) float64 {
	var score float64

	if f.HasColors() {
		if colorOverlap(p.Color, f.Colors) {
			score += weightColorOverlap
		} else {
			score += weightColorMiss
		}
	} else if anyContains(p.Color, query) {
		score += weightColor
	}

	if strings.Contains(strings.ToLower(p.Name), query) {
		score += weightName
	}
	if anyContains(p.Category, query) {
		score += weightCategory
	}
	if anyContains(p.Keywords, query) {
		score += weightKeywords
	}
	if strings.Contains(strings.ToLower(p.Brand), query) {
		score += weightBrand
	}
	if strings.Contains(strings.ToLower(p.Material), query) {
		score += weightMaterial
	}
	if strings.Contains(strings.ToLower(p.Target), query) {
		score += weightTarget
	}
	if strings.Contains(strings.ToLower(p.Scene), query) {
		score += weightScene
	}
	if strings.Contains(strings.ToLower(p.Description), query) {
		score += weightDescription
	}
	if p.IsNew {
		score += weightIsNew
	}

	return score
}

func anyContains(values []string, query string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

// colorOverlap reports whether any product color contains one of the
// requested colors. Containment, not equality: "ネイビーブルー" satisfies
// a "ネイビー" filter.
func colorOverlap(productColors, requested []string) bool {
	for _, pc := range productColors {
		for _, rc := range requested {
			if strings.Contains(pc, rc) {
				return true
			}
		}
	}
	return false
}

// topRated returns the highest-rated products, stable on input order for
// equal ratings.
func topRated(products []domain.Product, limit int) []hit {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	hits := make([]hit, len(sorted))
	for i, p := range sorted {
		hits[i] = hit{product: p, score: p.Rating}
	}
	return hits
}
