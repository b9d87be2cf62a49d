package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/modacloud/stylesearch/internal/domain/search/filter"
	"github.com/modacloud/stylesearch/internal/domain/search/mode"
)

// Entry is one recorded search. Append-only.
type Entry struct {
	ID          string         `json:"id"`
	Query       string         `json:"query"`
	Mode        mode.Mode      `json:"search_type"`
	Filters     filter.Filters `json:"filters"`
	ResultCount int            `json:"result_count"`
	ElapsedMs   int64          `json:"elapsed_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Repo records search telemetry in Postgres.
type Repo struct {
	db *sql.DB
}

// New creates a history repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// EnsureSchema creates the history table if absent.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS search_history (
	id UUID PRIMARY KEY,
	query TEXT NOT NULL,
	search_type TEXT NOT NULL,
	filters JSONB NOT NULL DEFAULT '{}'::jsonb,
	result_count INTEGER NOT NULL DEFAULT 0,
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at DESC);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute history ddl: %w", err)
	}
	return nil
}

// Record appends one search. ID and CreatedAt are assigned here when unset.
func (r *Repo) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	filters, err := json.Marshal(e.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO search_history (id, query, search_type, filters, result_count, elapsed_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, e.ID, e.Query, string(e.Mode), filters, e.ResultCount, e.ElapsedMs, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search history: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, query, search_type, filters, result_count, elapsed_ms, created_at
FROM search_history
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var m string
		var filters []byte
		if err := rows.Scan(&e.ID, &e.Query, &m, &filters, &e.ResultCount, &e.ElapsedMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal(filters, &e.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal filters: %w", err)
		}
		e.Mode = mode.Mode(m)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
