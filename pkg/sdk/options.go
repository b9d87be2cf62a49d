package stylesearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogDSN string

	indexAddrs    []string
	indexPassword string
	indexName     string

	embedder Embedder
	curator  Curator

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	overFetchMult    int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres sets the catalog database DSN. Required.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDSN = dsn
	})
}

// WithRedis configures the vector index connection. Required.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexAddrs = []string{addr}
		c.indexPassword = password
	})
}

// WithIndexName overrides the vector index name. Default: "idx:products".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithEmbedder sets the text embedding provider.
// Without it, hybrid and vector searches degrade to lexical retrieval.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCurator sets the curation provider used by Classify.
// Without it, Classify falls back to rank-order buckets.
func WithCurator(cu Curator) Option {
	return optionFunc(func(c *clientConfig) {
		c.curator = cu
	})
}

// WithVectorDimensions sets the embedding dimension.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithOverFetch sets the vector over-fetch multiplier used before
// post-filter hydration. Default: 2.
func WithOverFetch(mult int) Option {
	return optionFunc(func(c *clientConfig) {
		c.overFetchMult = mult
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
