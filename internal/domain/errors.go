package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound signals a missing product.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct signals a malformed catalog record.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidQuery signals a missing or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrRateLimited signals an upstream rate limit hit; callers may back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorUnavailable signals that the vector index or embedding path
	// is down. Recoverable: search degrades to the lexical path.
	ErrVectorUnavailable = errors.New("vector search unavailable")
	// ErrCatalogUnavailable signals that the catalog database is down.
	// Fatal for the lexical path, which is the retrieval floor.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrSearchUnavailable signals total backend loss: both the lexical
	// and the vector path failed. Propagated as a hard failure.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrCuratorError signals a failure in the generative curation step.
	ErrCuratorError = errors.New("curator error")
)
