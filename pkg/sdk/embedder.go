package stylesearch

import "context"

// Embedder converts text to vector embeddings.
// Without it, hybrid and vector searches degrade to lexical retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Curation is a curator's bucket assignment over candidate product IDs.
// IDs not present among the candidates are dropped.
type Curation struct {
	MainIDs    []string
	SubIDs     []string
	RelatedIDs []string
	Summary    string
	Message    string
}

// Curator splits retrieved candidates into presentation buckets and writes
// the storefront copy. Optional; Classify falls back to rank-order buckets
// without it.
type Curator interface {
	Curate(ctx context.Context, query string, candidates []Product) (Curation, error)
}
