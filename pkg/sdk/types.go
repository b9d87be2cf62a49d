package stylesearch

// SearchMode controls the retrieval strategy.
type SearchMode string

// Search mode constants. ModeFallback is never requested; it is reported
// when nothing matched and the engine answered with top-rated products.
const (
	ModeHybrid      SearchMode = "hybrid"
	ModeVector      SearchMode = "vector"
	ModeTraditional SearchMode = "traditional"
	ModeFallback    SearchMode = "fallback"
)

// Product is a catalog record.
type Product struct {
	ID           string
	Name         string
	Brand        string
	Category     []string
	Price        int
	Size         []string
	Color        []string
	Material     string
	Description  string
	Keywords     []string
	Target       string
	Scene        string
	RecommendFor string
	Catchcopy    string
	Image        string
	Rating       float64
	Reviews      int
	IsNew        bool
	Season       string
}

// Filters narrows a search to product attributes. Nil pointer fields are
// not applied.
type Filters struct {
	Colors     []string
	Categories []string
	Brands     []string
	MinPrice   *int
	MaxPrice   *int
	IsNew      *bool
	Season     string
}

// SearchRequest is a product search query.
type SearchRequest struct {
	Query        string
	Mode         SearchMode // default: hybrid
	Filters      Filters    // empty: extracted from the query text
	Limit        int        // default: 15, max: 50
	VectorWeight *float64   // default: 0.7
}

// SearchResult is a ranked page of products.
type SearchResult struct {
	Products  []Product
	Scores    map[string]float64
	Strategy  SearchMode // the strategy that actually answered
	Total     int
	ElapsedMs int64
}

// ClassifiedResult groups search candidates into presentation buckets
// with storefront copy.
type ClassifiedResult struct {
	Main    []Product
	Sub     []Product
	Related []Product
	Summary string
	Message string
}

// ImportReport summarizes a catalog import.
type ImportReport struct {
	Total    int
	Inserted int
	Indexed  int
	Invalid  int
	Failed   int
}

// ListQuery selects a filtered page of the catalog.
type ListQuery struct {
	Keyword string
	Filters Filters
	Sort    string // "rating", "price_asc", "price_desc"
	Limit   int
	Offset  int
}

// ListResult is a page of products plus the total match count.
type ListResult struct {
	Products []Product
	Total    int
}

// CatalogStats holds catalog-level aggregates.
type CatalogStats struct {
	TotalProducts int
	NewProducts   int
	AvgPrice      float64
	AvgRating     float64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
