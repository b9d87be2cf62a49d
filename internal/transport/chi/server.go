package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	"github.com/modacloud/stylesearch/internal/repository/history"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	ingestuc "github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

const maxImportSize = 1000

// SearchService executes product searches.
type SearchService interface {
	Search(ctx context.Context, req request.Request) (*searchuc.Result, error)
	Recommend(ctx context.Context, productID string, limit int) (*searchuc.Result, error)
}

// ClassifyService buckets ranked candidates into the storefront response.
type ClassifyService interface {
	Classify(ctx context.Context, query string, candidateIDs []string) (response.Classified, []domain.Product, error)
}

// IngestService imports catalog products.
type IngestService interface {
	Import(ctx context.Context, products []domain.Product) (ingestuc.Report, error)
}

// CatalogReader serves the product read endpoints.
type CatalogReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error)
	Popular(ctx context.Context, limit int) ([]domain.Product, error)
	NewArrivals(ctx context.Context, limit int) ([]domain.Product, error)
	Stats(ctx context.Context) (catalogrepo.Stats, error)
}

// IndexReader reports vector index statistics.
type IndexReader interface {
	Count(ctx context.Context) (int, error)
}

// HistoryReader serves recorded search telemetry.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// EmbeddingInfo describes the embedding space for the stats endpoint.
type EmbeddingInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API.
type Server struct {
	search        SearchService
	classify      ClassifyService
	ingest        IngestService
	catalog       CatalogReader
	index         IndexReader
	history       HistoryReader
	health        HealthService
	embedding     EmbeddingInfo
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. index and hist may be nil when the
// vector backend or history recording is disabled.
func NewServer(
	search SearchService,
	classify ClassifyService,
	ingest IngestService,
	catalog CatalogReader,
	index IndexReader,
	hist HistoryReader,
	health HealthService,
	embedding EmbeddingInfo,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		classify:  classify,
		ingest:    ingest,
		catalog:   catalog,
		index:     index,
		history:   hist,
		health:    health,
		embedding: embedding,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrInvalidProduct, http.StatusBadRequest, codeInvalidProduct),
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, codeProductNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrCuratorError, http.StatusBadGateway, codeCuratorError),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, codeSearchUnavailable),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, codeCatalogUnavailable),
	}
	return s
}

// Handler builds the route table. Middleware is the composition root's
// concern.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/classify", s.Classify)
		r.Get("/stats", s.Stats)
		r.Get("/history", s.SearchHistory)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.ListProducts)
			r.Get("/popular", s.PopularProducts)
			r.Get("/new", s.NewArrivals)
			r.Post("/import", s.ImportProducts)
			r.Get("/{id}", s.GetProduct)
			r.Get("/{id}/recommendations", s.Recommendations)
		})
	})

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}

type searchRequestBody struct {
	Query        string         `json:"query"`
	SearchType   mode.Mode      `json:"search_type"`
	Filters      filter.Filters `json:"filters"`
	Limit        int            `json:"limit"`
	VectorWeight *float64       `json:"vector_weight"`
}

type searchResponseBody struct {
	Query      string             `json:"query"`
	SearchType mode.Mode          `json:"search_type"`
	Total      int                `json:"total"`
	ElapsedMs  int64              `json:"elapsed_ms"`
	Products   []domain.Product   `json:"products"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(body.Query, body.SearchType, body.Filters, body.Limit, body.VectorWeight)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseBody{
		Query:      req.Query(),
		SearchType: res.Strategy,
		Total:      res.Total,
		ElapsedMs:  res.ElapsedMs,
		Products:   orEmptyProducts(res.Products),
		Scores:     res.Scores,
	})
}

type classifyRequestBody struct {
	Query        string   `json:"query"`
	CandidateIDs []string `json:"candidate_ids"`
}

type classifyResponseBody struct {
	MainProducts    []domain.Product `json:"main_products"`
	SubProducts     []domain.Product `json:"sub_products"`
	RelatedProducts []domain.Product `json:"related_products"`
	Summary         string           `json:"summary"`
	Message         string           `json:"message"`
}

// Classify handles POST /api/classify.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var body classifyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.CandidateIDs) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "candidate_ids is required")
		return
	}

	resp, products, err := s.classify.Classify(r.Context(), body.Query, body.CandidateIDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	writeJSON(w, http.StatusOK, classifyResponseBody{
		MainProducts:    productsFor(resp.Main(), byID),
		SubProducts:     productsFor(resp.Sub(), byID),
		RelatedProducts: productsFor(resp.Related(), byID),
		Summary:         resp.Summary(),
		Message:         resp.Message(),
	})
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListProducts handles GET /api/products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := catalogrepo.ListQuery{
		Keyword: r.URL.Query().Get("q"),
		Filters: filtersFromQuery(r),
		Sort:    r.URL.Query().Get("sort"),
		Limit:   queryInt(r, "limit", 20),
		Offset:  queryInt(r, "offset", 0),
	}

	products, total, err := s.catalog.List(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Products: orEmptyProducts(products),
		Total:    total,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
}

// PopularProducts handles GET /api/products/popular.
func (s *Server) PopularProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.Popular(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": orEmptyProducts(products)})
}

// NewArrivals handles GET /api/products/new.
func (s *Server) NewArrivals(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.NewArrivals(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": orEmptyProducts(products)})
}

// GetProduct handles GET /api/products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Recommendations handles GET /api/products/{id}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	res, err := s.search.Recommend(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 5))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": orEmptyProducts(res.Products)})
}

type importRequestBody struct {
	Products []domain.Product `json:"products"`
}

// ImportProducts handles POST /api/products/import.
func (s *Server) ImportProducts(w http.ResponseWriter, r *http.Request) {
	var body importRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Products) == 0 || len(body.Products) > maxImportSize {
		writeError(w, http.StatusBadRequest, codeInvalidProduct,
			fmt.Sprintf("products count must be between 1 and %d", maxImportSize))
		return
	}

	report, err := s.ingest.Import(r.Context(), body.Products)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type statsResponse struct {
	Catalog     catalogrepo.Stats `json:"catalog"`
	VectorIndex *indexStats       `json:"vector_index,omitempty"`
	Embedding   EmbeddingInfo     `json:"embedding"`
}

type indexStats struct {
	Points int `json:"points"`
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	catStats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := statsResponse{Catalog: catStats, Embedding: s.embedding}
	if s.index != nil {
		if points, err := s.index.Count(r.Context()); err == nil {
			resp.VectorIndex = &indexStats{Points: points}
		} else {
			s.logger.Warn("vector index stats unavailable", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

const maxHistoryLimit = 100

type historyResponse struct {
	History []history.Entry `json:"history"`
}

// SearchHistory handles GET /api/history.
func (s *Server) SearchHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, historyResponse{History: []history.Entry{}})
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{History: entries})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// filtersFromQuery reads attribute filters from list query parameters.
func filtersFromQuery(r *http.Request) filter.Filters {
	q := r.URL.Query()

	var f filter.Filters
	if v := q.Get("category"); v != "" {
		f.Categories = []string{v}
	}
	if v := q.Get("color"); v != "" {
		f.Colors = []string{v}
	}
	if v := q.Get("brand"); v != "" {
		f.Brands = []string{v}
	}
	if v := q.Get("min_price"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MinPrice = filter.IntPtr(n)
		}
	}
	if v := q.Get("max_price"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MaxPrice = filter.IntPtr(n)
		}
	}
	if v := q.Get("is_new"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.IsNew = filter.BoolPtr(b)
		}
	}
	f.Season = q.Get("season")
	return f
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func productsFor(ids []string, byID map[string]domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// orEmptyProducts keeps JSON arrays from serializing as null.
func orEmptyProducts(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}

// Error response codes.
const (
	codeBadRequest             = "bad_request"
	codeInvalidQuery           = "invalid_query"
	codeInvalidProduct         = "invalid_product"
	codeProductNotFound        = "product_not_found"
	codeNotFound               = "not_found"
	codeRateLimited            = "rate_limited"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeCuratorError           = "curator_error"
	codeSearchUnavailable      = "search_unavailable"
	codeCatalogUnavailable     = "catalog_unavailable"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidProduct,
		domain.ErrProductNotFound,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrCuratorError,
		domain.ErrSearchUnavailable,
		domain.ErrCatalogUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("domain error", zap.String("path", r.URL.Path), zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
