package domain

import "context"

// EmbeddingResult is the outcome of vectorizing one text.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into a fixed-dimension embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by components that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorConfig describes the embedding space of the product index.
type VectorConfig struct {
	Dimensions int
}

// DefaultVectorConfig matches text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Dimensions: 1536}
}
