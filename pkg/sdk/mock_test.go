package stylesearch

import (
	"context"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/request"
	"github.com/modacloud/stylesearch/internal/domain/search/response"
	catalogrepo "github.com/modacloud/stylesearch/internal/repository/catalog"
	healthuc "github.com/modacloud/stylesearch/internal/usecase/health"
	ingestuc "github.com/modacloud/stylesearch/internal/usecase/ingest"
	searchuc "github.com/modacloud/stylesearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn    func(ctx context.Context, req request.Request) (*searchuc.Result, error)
	recommendFn func(ctx context.Context, productID string, limit int) (*searchuc.Result, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (*searchuc.Result, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) Recommend(ctx context.Context, productID string, limit int) (*searchuc.Result, error) {
	return m.recommendFn(ctx, productID, limit)
}

// --- classifyUseCase mock ---

type mockClassifyUC struct {
	classifyFn func(ctx context.Context, query string, ids []string) (response.Classified, []domain.Product, error)
}

func (m *mockClassifyUC) Classify(
	ctx context.Context, query string, ids []string,
) (response.Classified, []domain.Product, error) {
	return m.classifyFn(ctx, query, ids)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	importFn func(ctx context.Context, products []domain.Product) (ingestuc.Report, error)
}

func (m *mockIngestUC) Import(ctx context.Context, products []domain.Product) (ingestuc.Report, error) {
	return m.importFn(ctx, products)
}

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	getFn     func(ctx context.Context, id string) (*domain.Product, error)
	listFn    func(ctx context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error)
	popularFn func(ctx context.Context, limit int) ([]domain.Product, error)
	newFn     func(ctx context.Context, limit int) ([]domain.Product, error)
	statsFn   func(ctx context.Context) (catalogrepo.Stats, error)
}

func (m *mockCatalogUC) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogUC) List(ctx context.Context, q catalogrepo.ListQuery) ([]domain.Product, int, error) {
	return m.listFn(ctx, q)
}

func (m *mockCatalogUC) Popular(ctx context.Context, limit int) ([]domain.Product, error) {
	return m.popularFn(ctx, limit)
}

func (m *mockCatalogUC) NewArrivals(ctx context.Context, limit int) ([]domain.Product, error) {
	return m.newFn(ctx, limit)
}

func (m *mockCatalogUC) Stats(ctx context.Context) (catalogrepo.Stats, error) {
	return m.statsFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- helpers ---

func testClient(
	searchSvc searchUseCase,
	classifySvc classifyUseCase,
	ingestSvc ingestUseCase,
	catalogSvc catalogUseCase,
	healthSvc healthUseCase,
) *Client {
	return &Client{
		searchSvc:   searchSvc,
		classifySvc: classifySvc,
		ingestSvc:   ingestSvc,
		catalogSvc:  catalogSvc,
		healthSvc:   healthSvc,
	}
}
