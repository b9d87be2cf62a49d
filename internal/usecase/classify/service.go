// Package classify turns a ranked candidate list into the bucketed
// storefront response, optionally letting an external curation model
// choose the buckets and write the copy.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	"github.com/modacloud/stylesearch/internal/logger"
)

// Heuristic bucket sizes used when no curator is configured or the
// curator fails.
const (
	mainBucketSize    = 5
	subBucketSize     = 5
	relatedBucketSize = 5
)

// Service assembles classified responses.
type Service struct {
	catalog Catalog
	curator Curator
}

// New creates a classify service. curator may be nil; buckets are then
// assigned heuristically from candidate order.
func New(catalog Catalog, curator Curator) *Service {
	return &Service{catalog: catalog, curator: curator}
}

// Classify resolves the candidate IDs against the catalog, curates them
// into buckets, and returns the response plus the resolved products.
// Candidate IDs that do not resolve are dropped silently; curator output
// is validated so only resolved IDs survive. Curator failures degrade to
// heuristic buckets; rate limiting is surfaced as ErrRateLimited.
func (s *Service) Classify(ctx context.Context, query string, candidateIDs []string) (response.Classified, []domain.Product, error) {
	query = request.Sanitize(query)

	products, err := s.resolve(ctx, candidateIDs)
	if err != nil {
		return response.Classified{}, nil, err
	}
	if len(products) == 0 {
		return response.New(nil, nil, nil, "", ""), nil, nil
	}

	cur, err := s.curate(ctx, query, products)
	if err != nil {
		return response.Classified{}, nil, err
	}

	resp := response.New(cur.MainIDs, cur.SubIDs, cur.RelatedIDs, cur.Summary, cur.Message)

	known := make(map[string]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}
	resp.FilterIDs(func(id string) bool {
		_, ok := known[id]
		return ok
	})

	return resp, products, nil
}

// resolve hydrates candidate IDs in their original order, dropping
// unknowns. GetByIDs returns rating order, so re-sequence here.
func (s *Service) resolve(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	fetched, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}
	byID := make(map[string]domain.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(fetched))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// curate asks the model for buckets, falling back to candidate-order
// heuristics when it is absent or fails. Rate limiting is the one error
// that propagates: retrying with heuristics would hide throttling from
// the caller.
func (s *Service) curate(ctx context.Context, query string, products []domain.Product) (domain.Curation, error) {
	if s.curator == nil {
		return heuristicCuration(products), nil
	}
	cur, err := s.curator.Curate(ctx, query, products)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return domain.Curation{}, err
		}
		logger.FromContext(ctx).Warn("curator failed, using heuristic buckets", zap.Error(err))
		return heuristicCuration(products), nil
	}
	if len(cur.MainIDs) == 0 && len(cur.SubIDs) == 0 && len(cur.RelatedIDs) == 0 {
		heur := heuristicCuration(products)
		heur.Summary = cur.Summary
		heur.Message = cur.Message
		return heur, nil
	}
	return cur, nil
}

// heuristicCuration fills buckets from candidate order: the caller hands
// candidates best-first, so the head of the list is the main bucket.
func heuristicCuration(products []domain.Product) domain.Curation {
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	var cur domain.Curation
	cur.MainIDs, ids = splitBucket(ids, mainBucketSize)
	cur.SubIDs, ids = splitBucket(ids, subBucketSize)
	cur.RelatedIDs, _ = splitBucket(ids, relatedBucketSize)
	return cur
}

func splitBucket(ids []string, n int) (bucket, rest []string) {
	if len(ids) <= n {
		return ids, nil
	}
	return ids[:n], ids[n:]
}
