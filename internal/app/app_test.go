package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/store"
)

func TestBuildInMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "memory"
	cfg.Analyzer.TempDir = t.TempDir()

	svc, err := Build(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.IsType(t, &store.MemoryStore{}, svc.Store)
	require.NotNil(t, svc.Analyses)

	resp, err := svc.Analyzer.Analyze(context.Background(), analyzer.Request{Upload: analyzer.Upload{
		Filename: "s.csv",
		Data:     []byte("Date,Item,Revenue\n2024-01-01,Widget,10\n2024-01-02,Gadget,20\n2024-01-03,Widget,5\n"),
	}})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestBuildSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.SQLite.Path = t.TempDir() + "/analyses.db"

	svc, err := Build(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Store.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
