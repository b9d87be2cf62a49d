package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/modacloud/stylesearch/internal/config"
	dbRedis "github.com/modacloud/stylesearch/internal/db/redis"
	"github.com/modacloud/stylesearch/internal/domain"
	logpkg "github.com/modacloud/stylesearch/internal/logger"
	"github.com/modacloud/stylesearch/internal/metrics"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	"github.com/modacloud/stylesearch/internal/repository/embcache"
	historyrepo "github.com/modacloud/stylesearch/internal/repository/history"
	"github.com/modacloud/stylesearch/internal/repository/vectorindex"
	chiTransport "github.com/modacloud/stylesearch/internal/transport/chi"
	openaiTransport "github.com/modacloud/stylesearch/internal/transport/openai"
	"github.com/modacloud/stylesearch/internal/usecase/classify"
	"github.com/modacloud/stylesearch/internal/usecase/extract"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	"github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
	"github.com/modacloud/stylesearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting stylesearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("index_addrs", cfg.Index.Addrs),
	)

	// Postgres catalog
	sqlDB, err := catalogrepo.OpenDB(catalogrepo.Config{
		DSN:          cfg.Catalog.DSN,
		MaxOpenConns: cfg.Catalog.MaxOpenConns,
		MaxIdleConns: cfg.Catalog.MaxIdleConns,
		ConnMaxIdle:  time.Duration(cfg.Catalog.ConnMaxIdleSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to open catalog database", zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	catalogRepo := catalogrepo.New(sqlDB)
	historyRepo := historyrepo.New(sqlDB)

	ctx := context.Background()
	readyCtx, readyCancel := context.WithTimeout(ctx, time.Duration(cfg.Catalog.ReadinessTimeout)*time.Second)
	if err := catalogRepo.Ping(readyCtx); err != nil {
		readyCancel()
		logger.Fatal("Catalog database not ready", zap.Error(err))
	}
	readyCancel()

	if err := catalogRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure catalog schema", zap.Error(err))
	}
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure history schema", zap.Error(err))
	}
	logger.Info("Connected to catalog database")

	// Redis vector index
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Index.Addrs,
		Password: cfg.Index.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Index store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector index store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Embedder chain: OpenAI provider wrapped in the Redis cache
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(
		baseEmbedder, store,
		time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	).WithKeyPrefix(cfg.Index.KeyPrefix)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	indexRepo := vectorindex.New(store, cfg.Index.Name, cfg.Embedding.Dimensions).
		WithKeyPrefix(cfg.Index.KeyPrefix).
		WithHNSW(vectorindex.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Chat-completion curator is optional
	var curator classify.Curator
	if cfg.Curator.Enabled {
		curator = openaiTransport.NewCurator(&openaiTransport.CuratorConfig{
			APIKey:  cfg.Curator.APIKey,
			BaseURL: cfg.Curator.BaseURL,
			Model:   cfg.Curator.Model,
			Logger:  logger,
		})
		logger.Info("Curator enabled", zap.String("model", cfg.Curator.Model))
	}

	// Use case services
	searchSvc := searchuc.New(catalogRepo, indexRepo, embedder, extract.New(), historyRepo).
		WithOverFetch(cfg.Search.OverFetchMult)
	classifySvc := classify.New(catalogRepo, curator)
	ingestSvc := ingest.New(catalogRepo, indexRepo, embedder)
	healthSvc := healthuc.New(catalogRepo, store, newEmbeddingHealthChecker(embedder, baseEmbedder))

	// Chi server
	server := chiTransport.NewServer(
		searchSvc, classifySvc, ingestSvc, catalogRepo, indexRepo, historyRepo, healthSvc,
		chiTransport.EmbeddingInfo{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Timeout(25 * time.Second))
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker probes the provider behind the cache. The cached
// decorator never talks to the API on a hit, so the health probe goes to
// whichever wrapped embedder implements domain.HealthChecker.
type embeddingHealthChecker struct {
	embedders []domain.Embedder
}

func newEmbeddingHealthChecker(embedders ...domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedders: embedders}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	for _, e := range h.embedders {
		if hc, ok := e.(domain.HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				return fmt.Errorf("embedding health check: %w", err)
			}
			return nil
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
