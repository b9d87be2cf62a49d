package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/modacloud/stylesearch/internal/db"
	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/result"
)

const (
	productKeyspace = "product:"
	tagSeparator    = ","
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo maintains the product vector index: one hash per product with the
// embedding plus the filterable attributes, searched via FT.SEARCH KNN.
type Repo struct {
	store     store
	indexName string
	dim       int
	keyPrefix string
	hnsw      HNSWConfig
}

// New creates a vector index repository.
func New(s store, indexName string, dim int) *Repo {
	return &Repo{
		store:     s,
		indexName: indexName,
		dim:       dim,
		keyPrefix: domain.KeyPrefix,
		hnsw:      HNSWConfig{M: 32, EFConstruct: 400},
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithKeyPrefix overrides the Redis key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.keyPrefix = prefix
	}
	return r
}

// EnsureIndex creates the product index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName,
		Prefixes: []string{r.productPrefix()},
		Fields: []db.IndexField{
			{Name: "category", Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{Name: "color", Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{Name: "brand", Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{Name: "season", Type: db.IndexFieldTag, TagSeparator: tagSeparator},
			{Name: "price", Type: db.IndexFieldNumeric},
			{Name: "rating", Type: db.IndexFieldNumeric},
			{Name: "is_new", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Embedded pairs a product with its embedding for upsert.
type Embedded struct {
	Product domain.Product
	Vector  []float32
}

// Upsert stores products with their embeddings in a single pipelined write.
func (r *Repo) Upsert(ctx context.Context, items []Embedded) error {
	if len(items) == 0 {
		return nil
	}

	hashes := make([]db.HashSetItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if len(item.Vector) != r.dim {
			return fmt.Errorf("product %s: vector dim %d, want %d: %w",
				item.Product.ID, len(item.Vector), r.dim, domain.ErrInvalidProduct)
		}
		hashes = append(hashes, db.HashSetItem{
			Key:    r.productKey(item.Product.ID),
			Fields: productFields(&item.Product, item.Vector),
		})
	}

	if err := r.store.HSetMulti(ctx, hashes); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

// Delete removes a product from the index.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.productKey(id)); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a product is indexed.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.productKey(id))
	if err != nil {
		return false, fmt.Errorf("check vector %s: %w", id, err)
	}
	return ok, nil
}

// Count returns the number of indexed products.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count indexed products: %w", err)
	}
	return n, nil
}

// Search runs a KNN query and returns candidates ordered by similarity.
// Scores are cosine similarity in [0, 1].
func (r *Repo) Search(ctx context.Context, vector []float32, f filter.Filters, k int) ([]result.Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      f,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"id", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	candidates := make([]result.Candidate, 0, len(res.Entries))
	for _, entry := range res.Entries {
		id := entry.Fields["id"]
		if id == "" {
			id = strings.TrimPrefix(entry.Key, r.productPrefix())
		}
		if id == "" {
			continue
		}
		candidates = append(candidates, result.NewCandidate(id, entry.Score, result.Vector))
	}
	return candidates, nil
}

func (r *Repo) productPrefix() string {
	return r.keyPrefix + productKeyspace
}

func (r *Repo) productKey(id string) string {
	return r.productPrefix() + id
}

// productFields flattens the attributes the index filters on, plus the
// embedding as little-endian float32 bytes.
func productFields(p *domain.Product, vec []float32) map[string]string {
	isNew := "0"
	if p.IsNew {
		isNew = "1"
	}
	return map[string]string{
		"id":       p.ID,
		"name":     p.Name,
		"category": strings.Join(p.Category, tagSeparator),
		"color":    strings.Join(p.Color, tagSeparator),
		"brand":    p.Brand,
		"season":   p.Season,
		"price":    strconv.Itoa(p.Price),
		"rating":   strconv.FormatFloat(p.Rating, 'f', -1, 64),
		"is_new":   isNew,
		"vector":   encodeVector(vec),
	}
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
