package ingest

import (
	"context"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/repository/vectorindex"
)

// Catalog persists product batches.
type Catalog interface {
	InsertBatch(ctx context.Context, products []domain.Product) error
}

// VectorIndex stores product embeddings.
type VectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, items []vectorindex.Embedded) error
}

// Embedder vectorizes product search text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
