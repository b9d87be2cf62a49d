package stylesearch

import (
	"context"
	"fmt"
	"time"

	"github.com/modacloud/stylesearch/internal/domain/search/mode"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

// Search runs a product search. Empty filters are extracted from the query
// text; an empty mode defaults to hybrid.
func (c *Client) Search(ctx context.Context, req SearchRequest) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	ireq, err := request.New(
		req.Query,
		mode.Mode(req.Mode),
		toInternalFilters(req.Filters),
		req.Limit,
		req.VectorWeight,
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	res, err := c.searchSvc.Search(ctx, ireq)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return fromInternalResult(res), nil
}

// Recommend returns products similar to the given one, excluding it.
func (c *Client) Recommend(ctx context.Context, productID string, limit int) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	res, err := c.searchSvc.Recommend(ctx, productID, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("recommend: %w", err)
	}
	return fromInternalResult(res), nil
}

func fromInternalResult(res *searchuc.Result) SearchResult {
	return SearchResult{
		Products:  fromInternalProducts(res.Products),
		Scores:    res.Scores,
		Strategy:  SearchMode(res.Strategy),
		Total:     res.Total,
		ElapsedMs: res.ElapsedMs,
	}
}
