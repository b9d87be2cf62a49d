package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	"github.com/modacloud/stylesearch/internal/repository/history"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	ingestuc "github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

// --- Mocks ---

type mockSearch struct {
	lastReq      request.Request
	lastRecommID string
	lastLimit    int
	result       *searchuc.Result
	err          error
}

func (m *mockSearch) Search(_ context.Context, req request.Request) (*searchuc.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockSearch) Recommend(_ context.Context, productID string, limit int) (*searchuc.Result, error) {
	m.lastRecommID = productID
	m.lastLimit = limit
	return m.result, m.err
}

type mockClassify struct {
	lastQuery string
	lastIDs   []string
	resp      response.Classified
	products  []domain.Product
	err       error
}

func (m *mockClassify) Classify(_ context.Context, query string, ids []string) (response.Classified, []domain.Product, error) {
	m.lastQuery = query
	m.lastIDs = ids
	return m.resp, m.products, m.err
}

type mockIngest struct {
	lastProducts []domain.Product
	report       ingestuc.Report
	err          error
}

func (m *mockIngest) Import(_ context.Context, products []domain.Product) (ingestuc.Report, error) {
	m.lastProducts = products
	return m.report, m.err
}

type mockCatalog struct {
	products  map[string]domain.Product
	lastList  catalogrepo.ListQuery
	listTotal int
	stats     catalogrepo.Stats
	err       error
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrProductNotFound)
	}
	return &p, nil
}

func (m *mockCatalog) List(_ context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error) {
	m.lastList = q
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, m.listTotal, nil
}

func (m *mockCatalog) Popular(_ context.Context, limit int) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, nil
}

func (m *mockCatalog) NewArrivals(_ context.Context, limit int) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, nil
}

func (m *mockCatalog) Stats(_ context.Context) (catalogrepo.Stats, error) {
	return m.stats, m.err
}

type mockIndexReader struct {
	count int
	err   error
}

func (m *mockIndexReader) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

type mockHistoryReader struct {
	lastLimit int
	entries   []history.Entry
	err       error
}

func (m *mockHistoryReader) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	m.lastLimit = limit
	return m.entries, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return m.report
}

type serverMocks struct {
	search   *mockSearch
	classify *mockClassify
	ingest   *mockIngest
	catalog  *mockCatalog
	index    *mockIndexReader
	history  *mockHistoryReader
	health   *mockHealth
}

func newTestServer(t *testing.T) (*Server, *serverMocks) {
	t.Helper()
	m := &serverMocks{
		search:   &mockSearch{result: &searchuc.Result{Strategy: mode.Hybrid}},
		classify: &mockClassify{},
		ingest:   &mockIngest{},
		catalog:  &mockCatalog{products: map[string]domain.Product{}},
		index:    &mockIndexReader{count: 42},
		history:  &mockHistoryReader{},
		health:   &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(
		m.search, m.classify, m.ingest, m.catalog, m.index, m.history, m.health,
		EmbeddingInfo{Model: "text-embedding-3-small", Dimensions: 1536},
		zap.NewNop(),
	)
	return srv, m
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.search.result = &searchuc.Result{
		Products:  []domain.Product{{ID: "p1", Name: "白シャツ"}, {ID: "p2", Name: "黒シャツ"}},
		Scores:    map[string]float64{"p1": 0.9, "p2": 0.7},
		Strategy:  mode.Hybrid,
		Total:     2,
		ElapsedMs: 12,
	}

	rr := doJSON(t, srv.Handler(), "POST", "/api/search", map[string]any{
		"query":       "黒いシャツ",
		"search_type": "hybrid",
		"limit":       10,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody[searchResponseBody](t, rr)
	if resp.SearchType != mode.Hybrid {
		t.Errorf("search_type: got %s, want hybrid", resp.SearchType)
	}
	if resp.Total != 2 || len(resp.Products) != 2 {
		t.Errorf("total/products: got %d/%d, want 2/2", resp.Total, len(resp.Products))
	}
	if resp.Scores["p1"] != 0.9 {
		t.Errorf("scores[p1]: got %v, want 0.9", resp.Scores["p1"])
	}
	if got := m.search.lastReq.Query(); got != "黒いシャツ" {
		t.Errorf("query passed to usecase: got %q", got)
	}
}

func TestSearch_DefaultsApplied(t *testing.T) {
	srv, m := newTestServer(t)

	rr := doJSON(t, srv.Handler(), "POST", "/api/search", map[string]any{"query": "シャツ"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.search.lastReq.Mode() != mode.Hybrid {
		t.Errorf("mode: got %s, want hybrid", m.search.lastReq.Mode())
	}
	if m.search.lastReq.Limit() != request.DefaultLimit {
		t.Errorf("limit: got %d, want %d", m.search.lastReq.Limit(), request.DefaultLimit)
	}
}

func TestSearch_EmptyQuery_400(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), "POST", "/api/search", map[string]any{"query": "   "})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != codeInvalidQuery {
		t.Errorf("code: got %s, want %s", resp.Code, codeInvalidQuery)
	}
}

func TestSearch_MalformedBody_400(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/search", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_Unavailable_503(t *testing.T) {
	srv, m := newTestServer(t)
	m.search.result = nil
	m.search.err = fmt.Errorf("all strategies failed: %w", domain.ErrSearchUnavailable)

	rr := doJSON(t, srv.Handler(), "POST", "/api/search", map[string]any{"query": "シャツ"})

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != codeSearchUnavailable {
		t.Errorf("code: got %s, want %s", resp.Code, codeSearchUnavailable)
	}
}

func TestSearch_UnknownError_500(t *testing.T) {
	srv, m := newTestServer(t)
	m.search.result = nil
	m.search.err = errors.New("boom")

	rr := doJSON(t, srv.Handler(), "POST", "/api/search", map[string]any{"query": "シャツ"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Message != "internal error" {
		t.Errorf("message leaked internals: %q", resp.Message)
	}
}

func TestClassify_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.classify.resp = response.New(
		[]string{"p1"}, []string{"p2"}, nil,
		"黒いシャツの検索結果", "おすすめです",
	)
	m.classify.products = []domain.Product{
		{ID: "p1", Name: "黒シャツ"},
		{ID: "p2", Name: "白シャツ"},
	}

	rr := doJSON(t, srv.Handler(), "POST", "/api/classify", map[string]any{
		"query":         "黒いシャツ",
		"candidate_ids": []string{"p1", "p2"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeBody[classifyResponseBody](t, rr)
	if len(resp.MainProducts) != 1 || resp.MainProducts[0].ID != "p1" {
		t.Errorf("main products: got %+v", resp.MainProducts)
	}
	if len(resp.SubProducts) != 1 || resp.SubProducts[0].ID != "p2" {
		t.Errorf("sub products: got %+v", resp.SubProducts)
	}
	if resp.Summary != "黒いシャツの検索結果" {
		t.Errorf("summary: got %q", resp.Summary)
	}
	if len(m.classify.lastIDs) != 2 {
		t.Errorf("candidate ids passed: got %v", m.classify.lastIDs)
	}
}

func TestClassify_MissingCandidates_400(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), "POST", "/api/classify", map[string]any{"query": "シャツ"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestClassify_RateLimited_429(t *testing.T) {
	srv, m := newTestServer(t)
	m.classify.err = fmt.Errorf("curate: %w", domain.ErrRateLimited)

	rr := doJSON(t, srv.Handler(), "POST", "/api/classify", map[string]any{
		"query":         "シャツ",
		"candidate_ids": []string{"p1"},
	})

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != codeRateLimited {
		t.Errorf("code: got %s, want %s", resp.Code, codeRateLimited)
	}
}

func TestGetProduct_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.catalog.products["p1"] = domain.Product{ID: "p1", Name: "白シャツ", Price: 4900}

	req := httptest.NewRequest("GET", "/api/products/p1", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	p := decodeBody[domain.Product](t, rr)
	if p.ID != "p1" || p.Price != 4900 {
		t.Errorf("product: got %+v", p)
	}
}

func TestGetProduct_NotFound_404(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/products/ghost", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != codeProductNotFound {
		t.Errorf("code: got %s, want %s", resp.Code, codeProductNotFound)
	}
}

func TestListProducts_QueryParams(t *testing.T) {
	srv, m := newTestServer(t)
	m.catalog.listTotal = 7

	req := httptest.NewRequest("GET",
		"/api/products/?q=シャツ&category=トップス&color=黒&min_price=1000&max_price=5000&is_new=true&season=夏&sort=price_asc&limit=5&offset=10",
		http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	q := m.catalog.lastList
	if q.Keyword != "シャツ" {
		t.Errorf("keyword: got %q", q.Keyword)
	}
	if len(q.Filters.Categories) != 1 || q.Filters.Categories[0] != "トップス" {
		t.Errorf("categories: got %v", q.Filters.Categories)
	}
	if len(q.Filters.Colors) != 1 || q.Filters.Colors[0] != "黒" {
		t.Errorf("colors: got %v", q.Filters.Colors)
	}
	if q.Filters.MinPrice == nil || *q.Filters.MinPrice != 1000 {
		t.Errorf("min price: got %v", q.Filters.MinPrice)
	}
	if q.Filters.MaxPrice == nil || *q.Filters.MaxPrice != 5000 {
		t.Errorf("max price: got %v", q.Filters.MaxPrice)
	}
	if q.Filters.IsNew == nil || !*q.Filters.IsNew {
		t.Errorf("is_new: got %v", q.Filters.IsNew)
	}
	if q.Filters.Season != "夏" {
		t.Errorf("season: got %q", q.Filters.Season)
	}
	if q.Sort != "price_asc" || q.Limit != 5 || q.Offset != 10 {
		t.Errorf("sort/limit/offset: got %s/%d/%d", q.Sort, q.Limit, q.Offset)
	}

	resp := decodeBody[productListResponse](t, rr)
	if resp.Total != 7 {
		t.Errorf("total: got %d, want 7", resp.Total)
	}
}

func TestListProducts_Defaults(t *testing.T) {
	srv, m := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/products/", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.catalog.lastList.Limit != 20 || m.catalog.lastList.Offset != 0 {
		t.Errorf("defaults: got limit=%d offset=%d", m.catalog.lastList.Limit, m.catalog.lastList.Offset)
	}
}

func TestRecommendations_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.search.result = &searchuc.Result{
		Products: []domain.Product{{ID: "p2"}, {ID: "p3"}},
		Strategy: mode.Hybrid,
	}

	req := httptest.NewRequest("GET", "/api/products/p1/recommendations?limit=3", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.search.lastRecommID != "p1" {
		t.Errorf("product id: got %q, want p1", m.search.lastRecommID)
	}
	if m.search.lastLimit != 3 {
		t.Errorf("limit: got %d, want 3", m.search.lastLimit)
	}
}

func TestImportProducts_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.ingest.report = ingestuc.Report{Total: 2, Inserted: 2, Indexed: 2}

	rr := doJSON(t, srv.Handler(), "POST", "/api/products/import", map[string]any{
		"products": []domain.Product{
			{ID: "p1", Name: "シャツ", Price: 1000},
			{ID: "p2", Name: "パンツ", Price: 2000},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	report := decodeBody[ingestuc.Report](t, rr)
	if report.Inserted != 2 || report.Indexed != 2 {
		t.Errorf("report: got %+v", report)
	}
	if len(m.ingest.lastProducts) != 2 {
		t.Errorf("products passed: got %d, want 2", len(m.ingest.lastProducts))
	}
}

func TestImportProducts_Empty_400(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), "POST", "/api/products/import", map[string]any{
		"products": []domain.Product{},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStats_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.catalog.stats = catalogrepo.Stats{TotalProducts: 120, NewProducts: 14, AvgPrice: 5400, AvgRating: 4.2}
	m.index.count = 120

	req := httptest.NewRequest("GET", "/api/stats", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[statsResponse](t, rr)
	if resp.Catalog.TotalProducts != 120 {
		t.Errorf("catalog total: got %d, want 120", resp.Catalog.TotalProducts)
	}
	if resp.VectorIndex == nil || resp.VectorIndex.Points != 120 {
		t.Errorf("index stats: got %+v", resp.VectorIndex)
	}
	if resp.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("embedding model: got %q", resp.Embedding.Model)
	}
}

func TestStats_IndexFailureOmitsSection(t *testing.T) {
	srv, m := newTestServer(t)
	m.index.err = errors.New("index down")

	req := httptest.NewRequest("GET", "/api/stats", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[statsResponse](t, rr)
	if resp.VectorIndex != nil {
		t.Errorf("index stats should be omitted, got %+v", resp.VectorIndex)
	}
}

func TestSearchHistory_OK(t *testing.T) {
	srv, m := newTestServer(t)
	m.history.entries = []history.Entry{
		{ID: "h1", Query: "黒いシャツ", Mode: mode.Hybrid, ResultCount: 5},
		{ID: "h2", Query: "コート", Mode: mode.Traditional, ResultCount: 2},
	}

	req := httptest.NewRequest("GET", "/api/history?limit=10", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.history.lastLimit != 10 {
		t.Errorf("limit: got %d, want 10", m.history.lastLimit)
	}
	resp := decodeBody[historyResponse](t, rr)
	if len(resp.History) != 2 || resp.History[0].Query != "黒いシャツ" {
		t.Errorf("history: got %+v", resp.History)
	}
}

func TestSearchHistory_ClampsLimit(t *testing.T) {
	srv, m := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/history?limit=5000", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.history.lastLimit != maxHistoryLimit {
		t.Errorf("limit: got %d, want %d", m.history.lastLimit, maxHistoryLimit)
	}
	resp := decodeBody[historyResponse](t, rr)
	if resp.History == nil || len(resp.History) != 0 {
		t.Errorf("history: got %+v, want empty list", resp.History)
	}
}

func TestHealthCheck_Healthy_200(t *testing.T) {
	srv, m := newTestServer(t)
	m.health.report = healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"catalog": "ok"},
	}

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[healthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["catalog"] != "ok" {
		t.Errorf("body: got %+v", resp)
	}
}

func TestHealthCheck_Degraded_200(t *testing.T) {
	srv, m := newTestServer(t)
	m.health.report = healthuc.Report{Status: healthuc.Degraded}

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("degraded should still serve 200, got %d", rr.Code)
	}
}

func TestHealthCheck_Unhealthy_503(t *testing.T) {
	srv, m := newTestServer(t)
	m.health.report = healthuc.Report{Status: healthuc.Unhealthy}

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
