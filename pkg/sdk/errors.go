package stylesearch

import "github.com/modacloud/stylesearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrProductNotFound        = domain.ErrProductNotFound
	ErrInvalidProduct         = domain.ErrInvalidProduct
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrVectorUnavailable      = domain.ErrVectorUnavailable
	ErrCatalogUnavailable     = domain.ErrCatalogUnavailable
	ErrSearchUnavailable      = domain.ErrSearchUnavailable
	ErrCuratorError           = domain.ErrCuratorError
)
