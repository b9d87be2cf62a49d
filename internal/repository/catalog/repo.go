package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/modacloud/stylesearch/internal/domain"
	"github.com/modacloud/stylesearch/internal/domain/search/filter"
)

const productColumns = `id, name, brand, category, price, size, color, material, description,
keywords, target, scene, recommend_for, catchcopy, image, rating, reviews, is_new, season`

// Config holds connection pool settings for the catalog database.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
}

// Repo is the Postgres-backed product catalog.
type Repo struct {
	db *sql.DB
}

// New creates a catalog repository over an open database handle.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// OpenDB opens a pgx-backed connection pool to the catalog database.
func OpenDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	idle := cfg.ConnMaxIdle
	if idle <= 0 {
		idle = 30 * time.Second
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(idle)

	return db, nil
}

// Ping checks catalog connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog ping: %w", err)
	}
	return nil
}

// EnsureSchema creates the catalog tables if absent. The advisory lock
// serializes bootstrap DDL across concurrent startups.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	category JSONB NOT NULL DEFAULT '[]'::jsonb,
	price INTEGER NOT NULL DEFAULT 0,
	size JSONB NOT NULL DEFAULT '[]'::jsonb,
	color JSONB NOT NULL DEFAULT '[]'::jsonb,
	material TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	target TEXT NOT NULL DEFAULT '',
	scene TEXT NOT NULL DEFAULT '',
	recommend_for TEXT NOT NULL DEFAULT '',
	catchcopy TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews INTEGER NOT NULL DEFAULT 0,
	is_new BOOLEAN NOT NULL DEFAULT FALSE,
	season TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_products_rating ON products(rating DESC);
CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
CREATE INDEX IF NOT EXISTS idx_products_category ON products USING GIN (category);
`
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GetByID fetches a single product.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrProductNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs fetches products by ID, ordered by rating descending. IDs that
// do not exist are silently absent from the result.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY rating DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// All returns the full catalog. The catalog is small enough that lexical
// scoring works over an in-memory slice.
func (r *Repo) All(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListQuery narrows a catalog listing.
type ListQuery struct {
	Keyword string
	Filters filter.Filters
	Sort    string // "rating", "price_asc", "price_desc", "" = rating
	Limit   int
	Offset  int
}

// List returns a filtered page of the catalog plus the total match count.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]domain.Product, int, error) {
	where, args := buildWhere(q.Filters)
	where, args = withKeyword(where, args, q.Keyword)

	var total int
	countQuery := `SELECT COUNT(*) FROM products` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		orderClause(q.Sort) +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, max(0, q.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Popular returns the highest rated products, reviews as tiebreak.
func (r *Repo) Popular(ctx context.Context, limit int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY rating DESC, reviews DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// NewArrivals returns recently added products.
func (r *Repo) NewArrivals(ctx context.Context, limit int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_new ORDER BY rating DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("new arrivals: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// insertBatchSize keeps import transactions bounded.
const insertBatchSize = 100

// InsertBatch upserts products in transactions of at most insertBatchSize
// rows each. A failing chunk does not roll back previously committed chunks.
func (r *Repo) InsertBatch(ctx context.Context, products []domain.Product) error {
	for start := 0; start < len(products); start += insertBatchSize {
		end := min(start+insertBatchSize, len(products))
		if err := r.insertChunk(ctx, products[start:end]); err != nil {
			return fmt.Errorf("insert chunk at %d: %w", start, err)
		}
	}
	return nil
}

func (r *Repo) insertChunk(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO products (` + productColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, brand = EXCLUDED.brand, category = EXCLUDED.category,
	price = EXCLUDED.price, size = EXCLUDED.size, color = EXCLUDED.color,
	material = EXCLUDED.material, description = EXCLUDED.description,
	keywords = EXCLUDED.keywords, target = EXCLUDED.target, scene = EXCLUDED.scene,
	recommend_for = EXCLUDED.recommend_for, catchcopy = EXCLUDED.catchcopy,
	image = EXCLUDED.image, rating = EXCLUDED.rating, reviews = EXCLUDED.reviews,
	is_new = EXCLUDED.is_new, season = EXCLUDED.season
`

	for i := range products {
		p := &products[i]
		category, size, color, keywords, err := marshalArrays(p)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query,
			p.ID, p.Name, p.Brand, category, p.Price, size, color, p.Material,
			p.Description, keywords, p.Target, p.Scene, p.RecommendFor,
			p.Catchcopy, p.Image, p.Rating, p.Reviews, p.IsNew, p.Season,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Stats summarizes the catalog.
type Stats struct {
	TotalProducts int     `json:"total_products"`
	NewProducts   int     `json:"new_products"`
	AvgPrice      float64 `json:"avg_price"`
	AvgRating     float64 `json:"avg_rating"`
}

// Stats returns catalog-level aggregates.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
	COUNT(*) FILTER (WHERE is_new),
	COALESCE(AVG(price), 0),
	COALESCE(AVG(rating), 0)
FROM products`)

	var s Stats
	if err := row.Scan(&s.TotalProducts, &s.NewProducts, &s.AvgPrice, &s.AvgRating); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return s, nil
}

// --- SQL helpers ---

// buildWhere translates extracted filters into a WHERE clause. Categories
// and colors use JSONB containment against the array columns.
func buildWhere(f filter.Filters) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.Categories) > 0 {
		ors := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			ors[i] = "category @> " + arg(jsonArray(c))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(f.Colors) > 0 {
		ors := make([]string, len(f.Colors))
		for i, c := range f.Colors {
			ors[i] = "color @> " + arg(jsonArray(c))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(f.Brands) > 0 {
		ors := make([]string, len(f.Brands))
		for i, b := range f.Brands {
			ors[i] = "brand = " + arg(b)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.IsNew != nil {
		conds = append(conds, "is_new = "+arg(*f.IsNew))
	}
	if f.Season != "" {
		conds = append(conds, "season = "+arg(f.Season))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// withKeyword appends a substring match over name, description and the
// keywords array to an existing WHERE clause.
func withKeyword(where string, args []any, keyword string) (string, []any) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return where, args
	}

	args = append(args, "%"+kw+"%")
	p := "$" + strconv.Itoa(len(args))
	cond := "(name ILIKE " + p + " OR description ILIKE " + p + " OR keywords::text ILIKE " + p + ")"
	if where == "" {
		return " WHERE " + cond, args
	}
	return where + " AND " + cond, args
}

func orderClause(sort string) string {
	switch sort {
	case "price_asc":
		return " ORDER BY price ASC"
	case "price_desc":
		return " ORDER BY price DESC"
	default:
		return " ORDER BY rating DESC"
	}
}

func jsonArray(v string) []byte {
	data, _ := json.Marshal([]string{v})
	return data
}

func marshalArrays(p *domain.Product) (category, size, color, keywords []byte, err error) {
	if category, err = json.Marshal(orEmpty(p.Category)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal category: %w", err)
	}
	if size, err = json.Marshal(orEmpty(p.Size)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal size: %w", err)
	}
	if color, err = json.Marshal(orEmpty(p.Color)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal color: %w", err)
	}
	if keywords, err = json.Marshal(orEmpty(p.Keywords)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal keywords: %w", err)
	}
	return category, size, color, keywords, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var category, size, color, keywords []byte

	err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &category, &p.Price, &size, &color,
		&p.Material, &p.Description, &keywords, &p.Target, &p.Scene,
		&p.RecommendFor, &p.Catchcopy, &p.Image, &p.Rating, &p.Reviews,
		&p.IsNew, &p.Season,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(category, &p.Category); err != nil {
		return nil, fmt.Errorf("unmarshal category: %w", err)
	}
	if err := json.Unmarshal(size, &p.Size); err != nil {
		return nil, fmt.Errorf("unmarshal size: %w", err)
	}
	if err := json.Unmarshal(color, &p.Color); err != nil {
		return nil, fmt.Errorf("unmarshal color: %w", err)
	}
	if err := json.Unmarshal(keywords, &p.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}

	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}
