package classify

import (
	"context"

	"github.com/modacloud/stylesearch/internal/domain"
)

// Catalog resolves candidate IDs to products.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Curator groups candidates into presentation buckets. Implementations
// talk to an external model; errors are expected and survivable.
type Curator interface {
	Curate(ctx context.Context, query string, candidates []domain.Product) (domain.Curation, error)
}
