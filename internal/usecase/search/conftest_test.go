package search

import (
	"context"
	"sort"

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/result"
	"github.com/modacloud/stylesearch/internal/repository/history"
)

// --- Mocks ---

type mockCatalog struct {
	products    []domain.Product
	allErr      error
	getByIDsErr error
	allCalled   bool
}

func (m *mockCatalog) All(_ context.Context) ([]domain.Product, error) {
	m.allCalled = true
	if m.allErr != nil {
		return nil, m.allErr
	}
	return m.products, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	if m.getByIDsErr != nil {
		return nil, m.getByIDsErr
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Product
	for _, p := range m.products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

type mockIndex struct {
	candidates  []result.Candidate
	err         error
	called      bool
	lastK       int
	lastFilters filter.Filters
}

func (m *mockIndex) Search(_ context.Context, _ []float32, f filter.Filters, k int) ([]result.Candidate, error) {
	m.called = true
	m.lastK = k
	m.lastFilters = f
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockExtractor struct {
	filters filter.Filters
	called  bool
}

func (m *mockExtractor) Extract(_ string) filter.Filters {
	m.called = true
	return m.filters
}

type mockHistory struct {
	entries chan history.Entry
	err     error
}

func newMockHistory() *mockHistory {
	return &mockHistory{entries: make(chan history.Entry, 4)}
}

func (m *mockHistory) Record(_ context.Context, e history.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries <- e
	return nil
}

// --- Fixtures ---

func product(id, name string, rating float64, opts ...func(*domain.Product)) domain.Product {
	p := domain.Product{
		ID:       id,
		Name:     name,
		Brand:    "MODA BASIC",
		Category: []string{"トップス"},
		Price:    3900,
		Color:    []string{"白"},
		Rating:   rating,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withColors(colors ...string) func(*domain.Product) {
	return func(p *domain.Product) { p.Color = colors }
}

func withCategory(cats ...string) func(*domain.Product) {
	return func(p *domain.Product) { p.Category = cats }
}

func withKeywords(kw ...string) func(*domain.Product) {
	return func(p *domain.Product) { p.Keywords = kw }
}
