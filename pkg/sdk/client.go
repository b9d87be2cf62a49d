package stylesearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/modacloud/stylesearch/internal/db/redis"
	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	historyrepo "github.com/modacloud/stylesearch/internal/repository/history"
	"github.com/modacloud/stylesearch/internal/repository/vectorindex"
	"github.com/modacloud/stylesearch/internal/usecase/classify"
	"github.com/modacloud/stylesearch/internal/usecase/extract"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	ingestuc "github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces substituted in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (*searchuc.Result, error)
	Recommend(ctx context.Context, productID string, limit int) (*searchuc.Result, error)
}

type classifyUseCase interface {
	Classify(ctx context.Context, query string, candidateIDs []string) (response.Classified, []domain.Product, error)
}

type ingestUseCase interface {
	Import(ctx context.Context, products []domain.Product) (ingestuc.Report, error)
}

type catalogUseCase interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error)
	Popular(ctx context.Context, limit int) ([]domain.Product, error)
	NewArrivals(ctx context.Context, limit int) ([]domain.Product, error)
	Stats(ctx context.Context) (catalogrepo.Stats, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the stylesearch SDK entry point.
type Client struct {
	sqlDB *sql.DB
	store *dbRedis.Store

	searchSvc   searchUseCase
	classifySvc classifyUseCase
	ingestSvc   ingestUseCase
	catalogSvc  catalogUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a stylesearch Client and connects to the catalog database and
// the vector index store. The provided context is used for the initial
// readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: domain.DefaultVectorConfig().Dimensions,
		indexName:        "idx:products",
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogDSN == "" {
		return nil, errors.New("stylesearch: catalog DSN required (use WithPostgres)")
	}
	if len(cfg.indexAddrs) == 0 {
		return nil, errors.New("stylesearch: index address required (use WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := catalogrepo.OpenDB(catalogrepo.Config{DSN: cfg.catalogDSN})
	if err != nil {
		return nil, fmt.Errorf("stylesearch: open catalog: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.indexAddrs,
		Password: cfg.indexPassword,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("stylesearch: create index store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("stylesearch: index store not ready: %w", err)
	}

	return wireClient(ctx, sqlDB, store, cfg, obs)
}

func wireClient(
	ctx context.Context, sqlDB *sql.DB, store *dbRedis.Store, cfg *clientConfig, obs *observer,
) (*Client, error) {
	catalogRepo := catalogrepo.New(sqlDB)
	historyRepo := historyrepo.New(sqlDB)

	if err := catalogRepo.EnsureSchema(ctx); err != nil {
		store.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("stylesearch: ensure catalog schema: %w", err)
	}
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		store.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("stylesearch: ensure history schema: %w", err)
	}

	indexRepo := vectorindex.New(store, cfg.indexName, cfg.vectorDimensions)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		indexRepo = indexRepo.WithHNSW(vectorindex.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("stylesearch: ensure vector index: %w", err)
	}

	// Embedder: noop unless provided. Vector retrieval fails fast and the
	// search service degrades to lexical.
	var domEmb domain.Embedder = &noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}

	var domCurator classify.Curator
	if cfg.curator != nil {
		domCurator = &curatorAdapter{inner: cfg.curator}
	}

	searchSvc := searchuc.New(catalogRepo, indexRepo, domEmb, extract.New(), historyRepo)
	if cfg.overFetchMult > 0 {
		searchSvc = searchSvc.WithOverFetch(cfg.overFetchMult)
	}

	return &Client{
		sqlDB:       sqlDB,
		store:       store,
		searchSvc:   searchSvc,
		classifySvc: classify.New(catalogRepo, domCurator),
		ingestSvc:   ingestuc.New(catalogRepo, indexRepo, domEmb),
		catalogSvc:  catalogRepo,
		healthSvc:   healthuc.New(catalogRepo, store, nil),
		obs:         obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.sqlDB != nil {
		_ = c.sqlDB.Close()
	}
}

// Ping checks catalog and index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog: %w", err)
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping index: %w", err)
	}
	return nil
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"stylesearch: embedder not configured (use WithEmbedder for vector search)",
	)
}

// curatorAdapter wraps the public Curator to satisfy classify.Curator.
type curatorAdapter struct {
	inner Curator
}

func (a *curatorAdapter) Curate(
	ctx context.Context, query string, candidates []domain.Product,
) (domain.Curation, error) {
	cu, err := a.inner.Curate(ctx, query, fromInternalProducts(candidates))
	if err != nil {
		return domain.Curation{}, fmt.Errorf("curate: %w", err)
	}
	return domain.Curation{
		MainIDs:    cu.MainIDs,
		SubIDs:     cu.SubIDs,
		RelatedIDs: cu.RelatedIDs,
		Summary:    cu.Summary,
		Message:    cu.Message,
	}, nil
}
