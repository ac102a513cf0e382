// Package catalog keeps a SQLite index of case metadata. The case
// directories remain the source of truth; the catalog is rebuilt from them
// on demand and refreshed on every metadata write.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kokistudios/casebook/internal/apperr"
	"github.com/kokistudios/casebook/internal/model"
)

// Catalog is a SQLite-backed case index.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL,
		business_type  TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'active',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		material_count INTEGER NOT NULL DEFAULT 0,
		analysis_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_cases_name ON cases(name);
	CREATE INDEX IF NOT EXISTS idx_cases_category ON cases(category);
	CREATE INDEX IF NOT EXISTS idx_cases_updated ON cases(updated_at DESC);
	`
	_, err := c.db.Exec(schema)
	return err
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Upsert records the current metadata of a case.
func (c *Catalog) Upsert(cs model.Case) error {
	return c.UpsertContext(context.Background(), cs)
}

func (c *Catalog) UpsertContext(ctx context.Context, cs model.Case) error {
	return upsert(ctx, c.db, cs)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, cs model.Case) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cases (id, name, category, business_type, status, created_at, updated_at, material_count, analysis_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			business_type = excluded.business_type,
			status = excluded.status,
			updated_at = excluded.updated_at,
			material_count = excluded.material_count,
			analysis_count = excluded.analysis_count`,
		cs.ID, cs.Name, string(cs.Category), string(cs.BusinessType), cs.Status,
		cs.CreatedAt.UTC().Format(time.RFC3339Nano), cs.UpdatedAt.UTC().Format(time.RFC3339Nano),
		cs.MaterialCount, cs.AnalysisCount)
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", cs.ID, err)
	}
	return nil
}

// ListParams filters List. Zero values match everything.
type ListParams struct {
	Category model.Category
	Query    string // substring of the case name
	Limit    int
}

// List returns cases ordered by most recent update.
func (c *Catalog) List(ctx context.Context, p ListParams) ([]model.Case, error) {
	var (
		where []string
		args  []any
	)
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(p.Category))
	}
	if p.Query != "" {
		where = append(where, "instr(name, ?) > 0")
		args = append(args, p.Query)
	}
	query := `SELECT id, name, category, business_type, status, created_at, updated_at, material_count, analysis_count FROM cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, name"
	if p.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", p.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []model.Case
	for rows.Next() {
		cs, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// ByName returns the most recently updated case with exactly this name.
func (c *Catalog) ByName(ctx context.Context, name string) (*model.Case, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, name, category, business_type, status, created_at, updated_at, material_count, analysis_count
		FROM cases WHERE name = ? ORDER BY updated_at DESC LIMIT 1`, name)
	cs, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("案件 \"%s\" 不在索引中", name).WithHint("运行 casebook doctor --reindex 重建索引")
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// Counts returns the number of indexed cases per category.
func (c *Catalog) Counts(ctx context.Context) (map[model.Category]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM cases GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}
	defer rows.Close()
	out := map[model.Category]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[model.Category(cat)] = n
	}
	return out, rows.Err()
}

// Rebuild replaces the whole index with cases.
func (c *Catalog) Rebuild(ctx context.Context, cases []model.Case) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cases`); err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}
	for _, cs := range cases {
		if err := upsert(ctx, tx, cs); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(cases), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(s scanner) (model.Case, error) {
	var (
		cs                 model.Case
		category, business string
		created, updated   string
	)
	if err := s.Scan(&cs.ID, &cs.Name, &category, &business, &cs.Status, &created, &updated, &cs.MaterialCount, &cs.AnalysisCount); err != nil {
		return cs, err
	}
	cs.Category = model.Category(category)
	cs.BusinessType = model.BusinessType(business)
	cs.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	cs.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return cs, nil
}
