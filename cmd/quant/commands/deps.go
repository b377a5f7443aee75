package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/report"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data/quality"
	"github.com/aidanvyas/asset-pricing-code/pkg/config"
	"github.com/aidanvyas/asset-pricing-code/pkg/database"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
	"github.com/aidanvyas/asset-pricing-code/pkg/redis"
)

// cachePrefix namespaces cached results in Redis
const cachePrefix = "quant"

// deps holds the shared infrastructure of one command invocation
type deps struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB              // nil: 영속화 비활성
	repo  *s0_data.ResultRepository // nil: 영속화 비활성
	redis *redis.Client
	cache *redis.Cache
}

// initDeps loads config and connects the optional Postgres and Redis backends
func initDeps(ctx context.Context) (*deps, error) {
	if configFile != "" {
		if err := os.Setenv("ENV_FILE", configFile); err != nil {
			return nil, err
		}
	}
	if env != "" {
		if err := os.Setenv("ENV", env); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)
	d := &deps{cfg: cfg, log: log}

	db, err := database.New(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("Result persistence disabled")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		d.db = db
		d.repo = s0_data.NewResultRepository(db.Pool)
		if err := d.repo.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure result schema: %w", err)
		}
	}

	rc, err := redis.New(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.redis = rc
	if rc.Enabled() {
		d.cache = redis.NewCache(rc, cachePrefix)
	}
	return d, nil
}

// Close releases the database pool and Redis connection
func (d *deps) Close() {
	d.db.Close()
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.log.WithError(err).Warn("Failed to close redis")
		}
	}
}

// window returns the configured evaluation window
func (d *deps) window() contracts.Window {
	return contracts.Window{Start: d.cfg.Window.Start, End: d.cfg.Window.End}
}

// resultCache returns the cache as the contracts interface (nil interface when disabled)
func (d *deps) resultCache() contracts.ResultCache {
	if d.cache == nil {
		return nil
	}
	return d.cache
}

// loadDataset reads the processed monthly panel, June snapshot and benchmark
func (d *deps) loadDataset(ctx context.Context) (*s0_data.Dataset, error) {
	ds, err := s0_data.NewLoader(d.log).LoadAll(ctx, d.cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	// 품질 게이트 실패는 경고만 (기간별 문제는 실행을 중단하지 않음)
	if snap := d.qualityCheck(ds); !snap.Passed {
		PrintWarning(fmt.Sprintf("data quality below threshold: %v (score %.2f)", snap.Failures, snap.QualityScore))
	}
	return ds, nil
}

// qualityCheck measures input coverage inside the evaluation window
func (d *deps) qualityCheck(ds *s0_data.Dataset) *contracts.DataQualitySnapshot {
	return quality.NewGate(d.log, quality.DefaultConfig()).Check(ds, d.window())
}

// exporter writes reports under the output directory; console 는 stdout
func (d *deps) exporter(formats []string) *report.Exporter {
	return report.NewExporter(d.log, d.cfg.Data.OutputDir, formats, os.Stdout)
}
