// Package store persists analysis records. Records are tenant scoped; a
// record of another tenant behaves as missing.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
)

// Common errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidTenant = errors.New("invalid tenant")
)

// Record is one stored analysis. Document holds the canonical JSON response.
type Record struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Filename    string          `json:"filename"`
	Platform    string          `json:"platform"`
	Fingerprint string          `json:"fingerprint"`
	Document    json.RawMessage `json:"document,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store is the record store contract.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, tenantID, id string) (*Record, error)
	// List returns records newest first without their documents.
	List(ctx context.Context, tenantID string, limit int) ([]*Record, error)
	Delete(ctx context.Context, tenantID, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 50

// prepare fills ID and CreatedAt and checks the tenant.
func prepare(rec *Record) error {
	if rec.TenantID == "" {
		return ErrInvalidTenant
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// Open creates the store selected by cfg.Database.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Database.SQLite)
	case "postgres":
		return OpenPostgres(ctx, cfg.Database.Postgres)
	case "redis":
		r := cfg.Cache.Redis
		return NewRedisStore(RedisConfig{Addr: r.Addr, Password: r.Password, DB: r.DB, PoolSize: r.PoolSize})
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}
