package stylesearch

import (
	"context"
	"fmt"
	"time"

	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
)

// ProductService reads the product catalog.
type ProductService struct {
	svc catalogUseCase
	obs *observer
}

// Products returns the catalog read service.
func (c *Client) Products() *ProductService {
	return &ProductService{svc: c.catalogSvc, obs: c.obs}
}

// Get retrieves a product by ID.
func (s *ProductService) Get(ctx context.Context, id string) (_ Product, err error) {
	start := time.Now()
	defer func() { s.obs.observe("product_get", start, err) }()

	p, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return fromInternalProduct(*p), nil
}

// List returns a filtered page of the catalog.
func (s *ProductService) List(ctx context.Context, q ListQuery) (_ ListResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("product_list", start, err) }()

	products, total, err := s.svc.List(ctx, catalogrepo.ListQuery{
		Keyword: q.Keyword,
		Filters: toInternalFilters(q.Filters),
		Sort:    q.Sort,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	return ListResult{Products: fromInternalProducts(products), Total: total}, nil
}

// Popular returns the highest rated products.
func (s *ProductService) Popular(ctx context.Context, limit int) (_ []Product, err error) {
	start := time.Now()
	defer func() { s.obs.observe("product_popular", start, err) }()

	products, err := s.svc.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	return fromInternalProducts(products), nil
}

// NewArrivals returns recently added products.
func (s *ProductService) NewArrivals(ctx context.Context, limit int) (_ []Product, err error) {
	start := time.Now()
	defer func() { s.obs.observe("product_new", start, err) }()

	products, err := s.svc.NewArrivals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("new arrivals: %w", err)
	}
	return fromInternalProducts(products), nil
}

// Stats returns catalog-level aggregates.
func (s *ProductService) Stats(ctx context.Context) (_ CatalogStats, err error) {
	start := time.Now()
	defer func() { s.obs.observe("product_stats", start, err) }()

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return CatalogStats{
		TotalProducts: stats.TotalProducts,
		NewProducts:   stats.NewProducts,
		AvgPrice:      stats.AvgPrice,
		AvgRating:     stats.AvgRating,
	}, nil
}
