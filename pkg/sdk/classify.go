package stylesearch

import (
	"context"
	"fmt"
	"time"

	"github.com/modacloud/stylesearch/internal/domain"
)

// Classify resolves search candidates and groups them into presentation
// buckets with storefront copy. Buckets are exclusive; unknown candidate IDs
// are dropped.
func (c *Client) Classify(ctx context.Context, query string, candidateIDs []string) (_ ClassifiedResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("classify", start, err) }()

	resp, products, err := c.classifySvc.Classify(ctx, query, candidateIDs)
	if err != nil {
		return ClassifiedResult{}, fmt.Errorf("classify: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	pick := func(ids []string) []Product {
		out := make([]Product, 0, len(ids))
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				out = append(out, fromInternalProduct(p))
			}
		}
		return out
	}

	return ClassifiedResult{
		Main:    pick(resp.Main()),
		Sub:     pick(resp.Sub()),
		Related: pick(resp.Related()),
		Summary: resp.Summary(),
		Message: resp.Message(),
	}, nil
}
