// Package search orchestrates product retrieval across lexical, vector,
// and hybrid strategies, degrading to weaker strategies instead of failing
// when a backend is down.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/result"
	"github.com/modacloud/stylesearch/internal/logger"
	"github.com/modacloud/stylesearch/internal/metrics"
	"github.com/modacloud/stylesearch/internal/repository/history"
)

// DefaultOverFetch is the KNN over-fetch multiplier. Filters applied after
// retrieval can thin the neighbor list, so we ask for more than the limit.
const DefaultOverFetch = 2

const historyTimeout = 5 * time.Second

// Result is the outcome of one search.
type Result struct {
	Products []domain.Product
	Scores   map[string]float64
	// Strategy is the strategy that actually produced the results, which
	// can be weaker than the one requested.
	Strategy  mode.Mode
	Total     int
	ElapsedMs int64
}

// Service runs product searches.
type Service struct {
	catalog   Catalog
	index     VectorIndex
	embed     Embedder
	extract   Extractor
	hist      HistoryRecorder
	overFetch int
}

// New creates a search service. hist may be nil to disable history.
func New(catalog Catalog, index VectorIndex, embed Embedder, extract Extractor, hist HistoryRecorder) *Service {
	return &Service{
		catalog:   catalog,
		index:     index,
		embed:     embed,
		extract:   extract,
		hist:      hist,
		overFetch: DefaultOverFetch,
	}
}

// WithOverFetch overrides the KNN over-fetch multiplier.
func (s *Service) WithOverFetch(mult int) *Service {
	if mult > 0 {
		s.overFetch = mult
	}
	return s
}

// Search executes the request using its strategy, falling back along the
// degradation ladder (hybrid -> traditional -> rating fallback) before
// giving up with ErrSearchUnavailable.
func (s *Service) Search(ctx context.Context, req request.Request) (*Result, error) {
	start := time.Now()

	if req.Filters().IsEmpty() {
		req = req.WithFilters(s.extract.Extract(req.Query()))
	}

	var (
		res *Result
		err error
	)
	switch req.Mode() {
	case mode.Vector:
		res, err = s.runVector(ctx, req)
	case mode.Traditional:
		res, err = s.runTraditional(ctx, req)
	default:
		res, err = s.runHybrid(ctx, req)
	}
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "error").Inc()
		return nil, err
	}

	res.Total = len(res.Products)
	res.ElapsedMs = time.Since(start).Milliseconds()

	strategy := string(res.Strategy)
	metrics.SearchRequestsTotal.WithLabelValues(strategy, "ok").Inc()
	metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	metrics.SearchResultsReturned.WithLabelValues(strategy).Observe(float64(res.Total))

	s.recordHistory(ctx, req, res)

	return res, nil
}

// runHybrid executes lexical and vector retrieval concurrently and fuses
// them. Vector failure degrades to lexical-only; lexical failure degrades
// to vector-only; both failing is a hard error.
func (s *Service) runHybrid(ctx context.Context, req request.Request) (*Result, error) {
	var (
		lex    lexicalOutcome
		lexErr error
		vec    Outcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lex, lexErr = s.searchLexical(gctx, req)
		return nil
	})
	g.Go(func() error {
		vec = s.searchVector(gctx, req)
		return nil
	})
	_ = g.Wait()

	log := logger.FromContext(ctx)

	if lexErr != nil && vec.Err != nil {
		return nil, fmt.Errorf("%w: lexical: %v; vector: %v", domain.ErrSearchUnavailable, lexErr, vec.Err)
	}

	if vec.Err != nil {
		log.Warn("vector retrieval failed, degrading to traditional", zap.Error(vec.Err))
		metrics.SearchDegradedTotal.WithLabelValues(string(mode.Hybrid), string(mode.Traditional)).Inc()
		return lexicalResult(lex), nil
	}
	if lexErr != nil {
		log.Warn("lexical retrieval failed, using vector only", zap.Error(lexErr))
		metrics.SearchDegradedTotal.WithLabelValues(string(mode.Hybrid), string(mode.Vector)).Inc()
		return vectorResult(vec.Hits, req.Limit()), nil
	}

	lexHits := lex.hits
	if lex.fallback {
		// Rating-ranked padding has no query relevance; only merge it
		// when vector retrieval also came up empty.
		lexHits = nil
	}
	if len(vec.Hits) == 0 && len(lexHits) == 0 {
		return lexicalResult(lex), nil
	}

	merged := mergeHybrid(vec.Hits, lexHits, req.VectorWeight(), req.Limit())
	return hitsResult(merged, mode.Hybrid, -1), nil
}

// runTraditional runs the lexical scorer alone.
func (s *Service) runTraditional(ctx context.Context, req request.Request) (*Result, error) {
	lex, err := s.searchLexical(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical: %v", domain.ErrSearchUnavailable, err)
	}
	return lexicalResult(lex), nil
}

// runVector runs vector retrieval, degrading to traditional when the
// vector path fails.
func (s *Service) runVector(ctx context.Context, req request.Request) (*Result, error) {
	vec := s.searchVector(ctx, req)
	if vec.Err != nil {
		logger.FromContext(ctx).Warn("vector retrieval failed, degrading to traditional", zap.Error(vec.Err))
		metrics.SearchDegradedTotal.WithLabelValues(string(mode.Vector), string(mode.Traditional)).Inc()
		return s.runTraditional(ctx, req)
	}
	if len(vec.Hits) == 0 {
		return s.runTraditional(ctx, req)
	}
	return vectorResult(vec.Hits, req.Limit()), nil
}

func lexicalResult(lex lexicalOutcome) *Result {
	strategy := mode.Traditional
	if lex.fallback {
		strategy = mode.Fallback
	}
	return hitsResult(lex.hits, strategy, -1)
}

func vectorResult(hits []vectorHit, limit int) *Result {
	converted := make([]hit, len(hits))
	for i, vh := range hits {
		converted[i] = hit{product: vh.product, score: vh.similarity}
	}
	return hitsResult(converted, mode.Vector, limit)
}

// hitsResult assembles the final ranked set, enforcing the dedup invariant
// (first occurrence of an ID wins). limit < 0 keeps every hit.
func hitsResult(hits []hit, strategy mode.Mode, limit int) *Result {
	candidates := make([]result.Candidate, len(hits))
	byID := make(map[string]domain.Product, len(hits))
	for i, h := range hits {
		candidates[i] = result.NewCandidate(h.product.ID, h.score, candidateStrategy(strategy))
		if _, ok := byID[h.product.ID]; !ok {
			byID[h.product.ID] = h.product
		}
	}

	set := result.NewRankedSet(candidates)
	set.Truncate(limit)

	products := make([]domain.Product, 0, set.Len())
	for _, id := range set.IDs() {
		products = append(products, byID[id])
	}
	return &Result{Products: products, Scores: set.Scores(), Strategy: strategy}
}

// candidateStrategy maps the served mode onto the retrieval strategy tag.
// Fallback results come off the lexical path.
func candidateStrategy(m mode.Mode) result.Strategy {
	switch m {
	case mode.Vector:
		return result.Vector
	case mode.Hybrid:
		return result.Hybrid
	default:
		return result.Lexical
	}
}

// Recommend searches for products similar to the given one. The query is
// built from the base product's name, category, and keywords; results are
// constrained to its main category and never include the product itself.
func (s *Service) Recommend(ctx context.Context, productID string, limit int) (*Result, error) {
	base, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load base product: %w", err)
	}

	terms := append([]string{base.Name}, base.Category...)
	terms = append(terms, base.Keywords...)
	query := strings.Join(terms, " ")

	var f filter.Filters
	if len(base.Category) > 0 {
		f.Categories = []string{base.Category[0]}
	}

	// One extra slot absorbs the base product before exclusion.
	req, err := request.New(query, mode.Hybrid, f, limit+1, nil)
	if err != nil {
		return nil, err
	}

	res, runErr := s.runHybrid(ctx, req)
	if runErr != nil {
		return nil, runErr
	}

	kept := res.Products[:0]
	for _, p := range res.Products {
		if p.ID == productID {
			delete(res.Scores, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	res.Products = kept
	res.Total = len(kept)
	return res, nil
}

// recordHistory logs the search without blocking or failing the response.
func (s *Service) recordHistory(ctx context.Context, req request.Request, res *Result) {
	if s.hist == nil {
		return
	}
	log := logger.FromContext(ctx)
	entry := history.Entry{
		Query:       req.Query(),
		Mode:        res.Strategy,
		Filters:     req.Filters(),
		ResultCount: res.Total,
		ElapsedMs:   res.ElapsedMs,
	}
	go func() {
		hctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := s.hist.Record(hctx, entry); err != nil {
			log.Warn("record search history", zap.Error(err))
		}
	}()
}
