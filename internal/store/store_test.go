package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Ping(ctx))

	for i := 0; i < 3; i++ {
		rec := &Record{
			TenantID:    "acme",
			Filename:    fmt.Sprintf("sales-%d.csv", i),
			Platform:    "amazon",
			Fingerprint: fmt.Sprintf("fp-%d", i),
			Document:    json.RawMessage(fmt.Sprintf(`{"success":true,"n":%d}`, i)),
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.Save(ctx, rec))
		assert.NotEmpty(t, rec.ID)
	}
	other := &Record{TenantID: "globex", Filename: "x.csv", Document: json.RawMessage(`{}`)}
	require.NoError(t, s.Save(ctx, other))

	assert.ErrorIs(t, s.Save(ctx, &Record{Document: json.RawMessage(`{}`)}), ErrInvalidTenant)

	list, err := s.List(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "sales-2.csv", list[0].Filename)
	assert.Equal(t, "sales-0.csv", list[2].Filename)
	assert.Empty(t, list[0].Document)

	limited, err := s.List(ctx, "acme", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	got, err := s.Get(ctx, "acme", list[0].ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"n":2}`, string(got.Document))
	assert.Equal(t, "fp-2", got.Fingerprint)
	assert.True(t, got.CreatedAt.Equal(base.Add(2*time.Hour)))

	_, err = s.Get(ctx, "acme", other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "acme", other.ID), ErrNotFound)

	require.NoError(t, s.Delete(ctx, "acme", got.ID))
	_, err = s.Get(ctx, "acme", got.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "acme", got.ID), ErrNotFound)

	list, err = s.List(ctx, "acme", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenSelectsDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "memory"
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Database.Driver = "oracle"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	sqlite := &SQLStore{dialect: DialectSQLite}
	pg := &SQLStore{dialect: DialectPostgres}
	q := "SELECT a FROM t WHERE b = $1 AND c = $12 AND d = '$'"

	assert.Equal(t, "SELECT a FROM t WHERE b = ? AND c = ? AND d = '$'", sqlite.rebind(q))
	assert.Equal(t, q, pg.rebind(q))
}
