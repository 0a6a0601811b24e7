package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	platform    TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	document    TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_tenant_created ON analyses (tenant_id, created_at DESC);
`

// SQLStore keeps records in a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (and migrates) a SQLite database file.
func OpenSQLite(ctx context.Context, cfg config.SQLiteConfig) (*SQLStore, error) {
	dsn := cfg.Path
	if cfg.JournalMode != "" && dsn != ":memory:" {
		dsn += "?_journal_mode=" + cfg.JournalMode
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return NewSQLStore(ctx, db, DialectSQLite)
}

// OpenPostgres opens (and migrates) a Postgres database.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*SQLStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return NewSQLStore(ctx, db, DialectPostgres)
}

// NewSQLStore wraps an open database and applies the schema.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

// rebind rewrites $n placeholders for SQLite.
func (s *SQLStore) rebind(query string) string {
	if s.dialect == DialectPostgres {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if _, err := strconv.Atoi(query[i+1 : j]); err == nil {
					b.WriteByte('?')
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Save inserts rec, assigning its ID and creation time when unset.
func (s *SQLStore) Save(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	query := `
		INSERT INTO analyses (id, tenant_id, filename, platform, fingerprint, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rec.ID, rec.TenantID, rec.Filename, rec.Platform, rec.Fingerprint,
		string(rec.Document), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Get returns the tenant's record with the given ID, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, tenantID, id string) (*Record, error) {
	query := `
		SELECT id, tenant_id, filename, platform, fingerprint, document, created_at
		FROM analyses WHERE tenant_id = $1 AND id = $2
	`
	rec := &Record{}
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(query), tenantID, id).Scan(
		&rec.ID, &rec.TenantID, &rec.Filename, &rec.Platform, &rec.Fingerprint, &doc, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	rec.Document = []byte(doc)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// List returns the tenant's records newest first, without documents.
func (s *SQLStore) List(ctx context.Context, tenantID string, limit int) ([]*Record, error) {
	query := `
		SELECT id, tenant_id, filename, platform, fingerprint, created_at
		FROM analyses WHERE tenant_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), tenantID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Filename, &rec.Platform, &rec.Fingerprint, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the tenant's record with the given ID, or returns ErrNotFound.
func (s *SQLStore) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE tenant_id = $1 AND id = $2`), tenantID, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
