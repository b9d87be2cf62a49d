package search

import (
	"context"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/result"
	"github.com/modacloud/stylesearch/internal/repository/history"
)

// Catalog reads products for lexical scoring and candidate hydration.
type Catalog interface {
	All(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// VectorIndex runs nearest-neighbor retrieval over product embeddings.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, f filter.Filters, k int) ([]result.Candidate, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Extractor derives attribute filters from query text.
type Extractor interface {
	Extract(query string) filter.Filters
}

// HistoryRecorder logs executed searches. Recording failures never fail
// the search itself.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}
