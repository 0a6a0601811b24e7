// Package app wires the analyzer, record store, cache and advisor from
// configuration. Both the API server and the CLI start from here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/advisor"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/cache"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/config"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/store"
)

// Services holds the long-lived collaborators of a running process.
type Services struct {
	Analyzer *analyzer.Analyzer
	Store    store.Store
	Analyses *cache.Analyses

	cacheClient cache.Client
}

// Build creates every service described by cfg. The caller must Close the
// result.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Services, error) {
	a := NewAnalyzer(cfg, logger)

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	client, err := openCache(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("services ready")

	return &Services{
		Analyzer:    a,
		Store:       st,
		Analyses:    cache.NewAnalyses(client, cfg.Cache.TTL),
		cacheClient: client,
	}, nil
}

// NewAnalyzer creates the analyzer described by cfg, with the column advisor
// when it is enabled.
func NewAnalyzer(cfg *config.Config, logger *observability.Logger) *analyzer.Analyzer {
	var adv roles.Advisor
	if cfg.Advisor.Enabled {
		adv = advisor.NewClient(advisor.Config{
			BaseURL:           cfg.Advisor.BaseURL,
			APIKey:            cfg.Advisor.APIKey,
			Model:             cfg.Advisor.Model,
			RequestsPerMinute: cfg.Advisor.RequestsPerMinute,
		}, logger)
		logger.Info().Str("model", cfg.Advisor.Model).Msg("column advisor enabled")
	}

	return analyzer.New(analyzer.Config{
		CoercionThreshold: cfg.Analyzer.CoercionThreshold,
		SampleRows:        cfg.Analyzer.SampleRows,
		AdvisorTimeout:    cfg.Analyzer.AdvisorTimeout,
		TempDir:           cfg.Analyzer.TempDir,
	}, logger, adv)
}

func openCache(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		r := cfg.Cache.Redis
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			PoolSize: r.PoolSize,
		})
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

// Close releases the store and cache connections.
func (s *Services) Close() error {
	var errs []error
	if s.cacheClient != nil {
		errs = append(errs, s.cacheClient.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
