// Package ingest imports catalog products: validation, transactional DB
// batches, embedding, and vector index upserts. Batches are independent;
// one failing batch never rolls back the others.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/logger"
	"github.com/modacloud/stylesearch/internal/repository/vectorindex"
)

const (
	batchSize = 100
	// embedConcurrency bounds parallel embedding calls per batch so a
	// large import cannot exhaust the provider's rate limit.
	embedConcurrency = 4
)

// Report summarizes one import run.
type Report struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Indexed  int `json:"indexed"`
	Invalid  int `json:"invalid"`
	Failed   int `json:"failed"`
}

// Service imports products.
type Service struct {
	catalog Catalog
	index   VectorIndex
	embed   Embedder
}

// New creates an ingest service. index and embed may be nil together to
// run a catalog-only import.
func New(catalog Catalog, index VectorIndex, embed Embedder) *Service {
	return &Service{catalog: catalog, index: index, embed: embed}
}

// Import validates and persists the products in batches of 100, then
// embeds and indexes each successfully inserted batch. The report counts
// per-product outcomes; an error is returned only when nothing could be
// imported at all.
func (s *Service) Import(ctx context.Context, products []domain.Product) (Report, error) {
	report := Report{Total: len(products)}
	log := logger.FromContext(ctx)

	valid := make([]domain.Product, 0, len(products))
	for i := range products {
		if err := products[i].Validate(); err != nil {
			report.Invalid++
			log.Warn("skipping invalid product",
				zap.String("product_id", products[i].ID), zap.Error(err))
			continue
		}
		valid = append(valid, products[i])
	}
	if len(valid) == 0 {
		if report.Total > 0 {
			return report, fmt.Errorf("no valid products in import: %w", domain.ErrInvalidProduct)
		}
		return report, nil
	}

	if s.index != nil {
		if err := s.index.EnsureIndex(ctx); err != nil {
			return report, fmt.Errorf("ensure vector index: %w", err)
		}
	}

	for start := 0; start < len(valid); start += batchSize {
		end := start + batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		if err := s.catalog.InsertBatch(ctx, batch); err != nil {
			report.Failed += len(batch)
			log.Error("insert batch failed",
				zap.Int("batch_start", start), zap.Int("batch_size", len(batch)), zap.Error(err))
			continue
		}
		report.Inserted += len(batch)

		if s.index == nil || s.embed == nil {
			continue
		}
		indexed, err := s.indexBatch(ctx, batch)
		if err != nil {
			log.Error("index batch failed",
				zap.Int("batch_start", start), zap.Error(err))
			continue
		}
		report.Indexed += indexed
	}

	if report.Inserted == 0 {
		return report, fmt.Errorf("all import batches failed: %w", domain.ErrCatalogUnavailable)
	}
	return report, nil
}

// indexBatch embeds the batch with bounded concurrency and upserts the
// vectors. Products whose embedding fails are skipped, not fatal.
func (s *Service) indexBatch(ctx context.Context, batch []domain.Product) (int, error) {
	log := logger.FromContext(ctx)

	items := make([]vectorindex.Embedded, len(batch))
	ok := make([]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range batch {
		g.Go(func() error {
			emb, err := s.embed.Embed(gctx, batch[i].SearchText())
			if err != nil {
				log.Warn("embedding failed, product not indexed",
					zap.String("product_id", batch[i].ID), zap.Error(err))
				return nil
			}
			items[i] = vectorindex.Embedded{Product: batch[i], Vector: emb.Embedding}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	embedded := items[:0]
	for i := range items {
		if ok[i] {
			embedded = append(embedded, items[i])
		}
	}
	if len(embedded) == 0 {
		return 0, nil
	}
	if err := s.index.Upsert(ctx, embedded); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(embedded), nil
}
