package stylesearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	ingestuc "github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

func TestSearch_ConvertsRequestAndResult(t *testing.T) {
	var captured request.Request
	searchSvc := &mockSearchUC{
		searchFn: func(_ context.Context, req request.Request) (*searchuc.Result, error) {
			captured = req
			return &searchuc.Result{
				Products:  []domain.Product{{ID: "p1", Name: "黒シャツ", Rating: 4.5}},
				Scores:    map[string]float64{"p1": 0.92},
				Strategy:  mode.Hybrid,
				Total:     1,
				ElapsedMs: 8,
			}, nil
		},
	}
	client := testClient(searchSvc, nil, nil, nil, nil)

	res, err := client.Search(context.Background(), SearchRequest{
		Query:   "黒いシャツ",
		Filters: Filters{Colors: []string{"黒"}},
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Query() != "黒いシャツ" {
		t.Errorf("query: got %q", captured.Query())
	}
	if captured.Mode() != mode.Hybrid {
		t.Errorf("default mode: got %s, want hybrid", captured.Mode())
	}
	if captured.Limit() != 10 {
		t.Errorf("limit: got %d, want 10", captured.Limit())
	}
	if got := captured.Filters().Colors; len(got) != 1 || got[0] != "黒" {
		t.Errorf("filters: got %v", got)
	}

	if res.Strategy != ModeHybrid {
		t.Errorf("strategy: got %s, want hybrid", res.Strategy)
	}
	if len(res.Products) != 1 || res.Products[0].Name != "黒シャツ" {
		t.Errorf("products: got %+v", res.Products)
	}
	if res.Scores["p1"] != 0.92 {
		t.Errorf("scores: got %v", res.Scores)
	}
	if res.ElapsedMs != 8 {
		t.Errorf("elapsed: got %d, want 8", res.ElapsedMs)
	}
}

func TestSearch_EmptyQueryFails(t *testing.T) {
	client := testClient(&mockSearchUC{}, nil, nil, nil, nil)

	_, err := client.Search(context.Background(), SearchRequest{Query: "  "})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("got %v, want ErrInvalidQuery", err)
	}
}

func TestSearch_ReportsFallbackStrategy(t *testing.T) {
	searchSvc := &mockSearchUC{
		searchFn: func(_ context.Context, _ request.Request) (*searchuc.Result, error) {
			return &searchuc.Result{Strategy: mode.Fallback}, nil
		},
	}
	client := testClient(searchSvc, nil, nil, nil, nil)

	res, err := client.Search(context.Background(), SearchRequest{Query: "該当なし"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != ModeFallback {
		t.Errorf("strategy: got %s, want fallback", res.Strategy)
	}
}

func TestRecommend_PassesThrough(t *testing.T) {
	var gotID string
	var gotLimit int
	searchSvc := &mockSearchUC{
		recommendFn: func(_ context.Context, productID string, limit int) (*searchuc.Result, error) {
			gotID = productID
			gotLimit = limit
			return &searchuc.Result{
				Products: []domain.Product{{ID: "p2"}},
				Strategy: mode.Hybrid,
			}, nil
		},
	}
	client := testClient(searchSvc, nil, nil, nil, nil)

	res, err := client.Recommend(context.Background(), "p1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "p1" || gotLimit != 5 {
		t.Errorf("passthrough: got id=%q limit=%d", gotID, gotLimit)
	}
	if len(res.Products) != 1 || res.Products[0].ID != "p2" {
		t.Errorf("products: got %+v", res.Products)
	}
}

func TestClassify_ResolvesBuckets(t *testing.T) {
	classifySvc := &mockClassifyUC{
		classifyFn: func(_ context.Context, _ string, _ []string) (response.Classified, []domain.Product, error) {
			resp := response.New([]string{"p1"}, []string{"p2"}, nil, "要約", "メッセージ")
			return resp, []domain.Product{
				{ID: "p1", Name: "黒シャツ"},
				{ID: "p2", Name: "白シャツ"},
			}, nil
		},
	}
	client := testClient(nil, classifySvc, nil, nil, nil)

	res, err := client.Classify(context.Background(), "黒いシャツ", []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Main) != 1 || res.Main[0].Name != "黒シャツ" {
		t.Errorf("main: got %+v", res.Main)
	}
	if len(res.Sub) != 1 || res.Sub[0].Name != "白シャツ" {
		t.Errorf("sub: got %+v", res.Sub)
	}
	if res.Summary != "要約" || res.Message != "メッセージ" {
		t.Errorf("copy: got %q / %q", res.Summary, res.Message)
	}
}

func TestClassify_ErrorPropagates(t *testing.T) {
	classifySvc := &mockClassifyUC{
		classifyFn: func(_ context.Context, _ string, _ []string) (response.Classified, []domain.Product, error) {
			return response.Classified{}, nil, fmt.Errorf("curate: %w", domain.ErrRateLimited)
		},
	}
	client := testClient(nil, classifySvc, nil, nil, nil)

	_, err := client.Classify(context.Background(), "シャツ", []string{"p1"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
}

func TestImportProducts_ConvertsReport(t *testing.T) {
	var captured []domain.Product
	ingestSvc := &mockIngestUC{
		importFn: func(_ context.Context, products []domain.Product) (ingestuc.Report, error) {
			captured = products
			return ingestuc.Report{Total: 2, Inserted: 2, Indexed: 1, Invalid: 0, Failed: 0}, nil
		},
	}
	client := testClient(nil, nil, ingestSvc, nil, nil)

	report, err := client.ImportProducts(context.Background(), []Product{
		{ID: "p1", Name: "シャツ"},
		{ID: "p2", Name: "パンツ"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 2 || captured[0].ID != "p1" {
		t.Errorf("products passed: got %+v", captured)
	}
	if report.Inserted != 2 || report.Indexed != 1 {
		t.Errorf("report: got %+v", report)
	}
}

func TestProducts_Get(t *testing.T) {
	catalogSvc := &mockCatalogUC{
		getFn: func(_ context.Context, id string) (*domain.Product, error) {
			if id != "p1" {
				return nil, domain.ErrProductNotFound
			}
			return &domain.Product{ID: "p1", Name: "ウールコート", Price: 19800}, nil
		},
	}
	client := testClient(nil, nil, nil, catalogSvc, nil)

	p, err := client.Products().Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "ウールコート" || p.Price != 19800 {
		t.Errorf("product: got %+v", p)
	}

	_, err = client.Products().Get(context.Background(), "ghost")
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("got %v, want ErrProductNotFound", err)
	}
}

func TestProducts_ListConvertsQuery(t *testing.T) {
	var captured catalogrepo.ListQuery
	catalogSvc := &mockCatalogUC{
		listFn: func(_ context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error) {
			captured = q
			return []domain.Product{{ID: "p1"}}, 9, nil
		},
	}
	client := testClient(nil, nil, nil, catalogSvc, nil)

	min := 1000
	res, err := client.Products().List(context.Background(), ListQuery{
		Keyword: "コート",
		Filters: Filters{Categories: []string{"アウター"}, MinPrice: &min},
		Sort:    "price_asc",
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Keyword != "コート" {
		t.Errorf("keyword: got %q", captured.Keyword)
	}
	if got := captured.Filters.Categories; len(got) != 1 || got[0] != "アウター" {
		t.Errorf("categories: got %v", got)
	}
	if captured.Filters.MinPrice == nil || *captured.Filters.MinPrice != 1000 {
		t.Errorf("min price: got %v", captured.Filters.MinPrice)
	}
	if captured.Sort != "price_asc" || captured.Limit != 5 {
		t.Errorf("sort/limit: got %s/%d", captured.Sort, captured.Limit)
	}
	if res.Total != 9 || len(res.Products) != 1 {
		t.Errorf("result: got total=%d products=%d", res.Total, len(res.Products))
	}
}

func TestHealth_ConvertsReport(t *testing.T) {
	healthSvc := &mockHealthUC{
		report: healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{
				"catalog":      "ok",
				"vector_index": "error",
			},
		},
	}
	client := testClient(nil, nil, nil, nil, healthSvc)

	status := client.Health(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status: got %s, want degraded", status.Status)
	}
	if status.Checks["vector_index"] != "error" {
		t.Errorf("checks: got %v", status.Checks)
	}
}
