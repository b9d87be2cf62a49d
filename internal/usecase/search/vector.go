package search

import (
	"context"
	"fmt"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
)

// vectorHit pairs a hydrated product with its cosine similarity.
type vectorHit struct {
	product    domain.Product
	similarity float64
}

// Outcome is the typed result of vector retrieval. A failed retrieval is
// data, not a thrown error: the caller decides whether to degrade.
type Outcome struct {
	Hits []vectorHit
	Err  error
}

// searchVector embeds the query, runs KNN with over-fetch, and hydrates
// the returned IDs. Unresolvable IDs are dropped.
func (s *Service) searchVector(ctx context.Context, req request.Request) Outcome {
	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return Outcome{Err: fmt.Errorf("embed query: %w", err)}
	}

	k := req.Limit() * s.overFetch
	candidates, err := s.index.Search(ctx, emb.Embedding, req.Filters(), k)
	if err != nil {
		return Outcome{Err: fmt.Errorf("knn search: %w: %v", domain.ErrVectorUnavailable, err)}
	}
	if len(candidates) == 0 {
		return Outcome{}
	}

	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID()
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return Outcome{Err: fmt.Errorf("hydrate candidates: %w", err)}
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	hits := make([]vectorHit, 0, len(candidates))
	for i := range candidates {
		p, ok := byID[candidates[i].ID()]
		if !ok {
			continue
		}
		hits = append(hits, vectorHit{product: p, similarity: candidates[i].Score()})
	}

	// Over-fetch exists only to survive post-filter drops. Downstream
	// ranking must see at most the requested limit.
	if len(hits) > req.Limit() {
		hits = hits[:req.Limit()]
	}
	return Outcome{Hits: hits}
}
