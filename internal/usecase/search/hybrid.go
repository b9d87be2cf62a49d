package search

import (
	"sort"

	"github.com/modacloud/stylesearch/internal/domain"
)

// Hybrid blend constants. Within each strategy the score mixes the raw
// signal with rank position so consensus between strategies outweighs a
// single strategy's top pick.
const (
	vectorSimShare     = 0.8
	vectorRankShare    = 0.2
	lexicalRankShare   = 0.7
	lexicalRatingShare = 0.3
)

// mergeHybrid fuses vector and lexical hits into one ranked list. Products
// present in both accumulate both contributions. vectorWeight is the vector
// share; lexical carries the rest.
func mergeHybrid(vector []vectorHit, lexical []hit, vectorWeight float64, limit int) []hit {
	combined := make(map[string]float64, len(vector)+len(lexical))
	products := make(map[string]domain.Product, len(vector)+len(lexical))

	n := float64(len(vector))
	for i, vh := range vector {
		rank := (n - float64(i)) / n
		combined[vh.product.ID] += (vh.similarity*vectorSimShare + rank*vectorRankShare) * vectorWeight
		products[vh.product.ID] = vh.product
	}

	m := float64(len(lexical))
	for i, lh := range lexical {
		rank := (m - float64(i)) / m
		rating := lh.product.Rating / 5.0
		combined[lh.product.ID] += (rank*lexicalRankShare + rating*lexicalRatingShare) * (1 - vectorWeight)
		products[lh.product.ID] = lh.product
	}

	merged := make([]hit, 0, len(combined))
	for id, score := range combined {
		merged = append(merged, hit{product: products[id], score: score})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		if merged[i].product.Rating != merged[j].product.Rating {
			return merged[i].product.Rating > merged[j].product.Rating
		}
		return merged[i].product.ID < merged[j].product.ID
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
