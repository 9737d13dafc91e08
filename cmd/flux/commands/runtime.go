package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/engineconfig"
	"github.com/wonny/fluxrx/internal/observability"
	"github.com/wonny/fluxrx/internal/pricestore"
	"github.com/wonny/fluxrx/pkg/config"
	"github.com/wonny/fluxrx/pkg/database"
	"github.com/wonny/fluxrx/pkg/logger"
	"github.com/wonny/fluxrx/pkg/redis"
)

const (
	sourceCSV      = "csv"
	sourcePostgres = "postgres"
)

// runtime 커맨드 공통 의존성 (config → logger → engine → loader)
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *observability.Metrics
	engine  *engine.Engine
	loader  contracts.PriceLoader

	db    *database.DB
	redis *redis.Client
}

// newRuntime wires the engine and the price source.
// needPrices=false → 로더 생략 (serve, version)
func newRuntime(ctx context.Context, needPrices bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := engineConfigPath
	if path == "" {
		path = cfg.EngineConfigPath
	}
	engCfg, err := engineconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		rt.metrics = observability.NewMetrics()
	}
	rt.engine, err = engine.New(engCfg, log, rt.metrics)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	if needPrices {
		if err := rt.openLoader(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// openLoader selects the price source from flags
func (rt *runtime) openLoader(ctx context.Context) error {
	switch source {
	case sourceCSV:
		if pricesPath == "" {
			return fmt.Errorf("--prices is required when --source=csv")
		}
		rt.loader = pricestore.NewFileLoader(pricesPath)
		return nil

	case sourcePostgres:
		db, err := database.New(ctx, rt.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		rt.db = db
		var loader contracts.PriceLoader = pricestore.NewRepository(db.Pool)

		if rt.cfg.Redis.Enabled {
			client, err := redis.New(ctx, rt.cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			rt.redis = client
			loader = pricestore.NewCachedLoader(loader, redis.NewCache(client, "fluxrx"), rt.cfg.Redis.CacheTTL, rt.log)
		}
		rt.loader = loader
		return nil
	}
	return fmt.Errorf("unknown --source %q (expected csv or postgres)", source)
}

// Close releases database and redis connections
func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

// loadBatch loads the selected assets and the optional benchmark.
// 벤치마크는 배치에서 제외
func (rt *runtime) loadBatch(ctx context.Context) ([]contracts.PriceSeries, *contracts.PriceSeries, error) {
	from, to, err := window()
	if err != nil {
		return nil, nil, err
	}

	series, err := rt.loader.LoadSeries(ctx, assetList, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("load prices: %w", err)
	}

	if benchmarkAsset == "" {
		return series, nil, nil
	}

	var bench *contracts.PriceSeries
	batch := make([]contracts.PriceSeries, 0, len(series))
	for i := range series {
		if series[i].Asset == benchmarkAsset {
			bench = &series[i]
			continue
		}
		batch = append(batch, series[i])
	}
	if bench == nil {
		loaded, err := rt.loader.LoadSeries(ctx, []string{benchmarkAsset}, from, to)
		if err != nil {
			return nil, nil, fmt.Errorf("load benchmark: %w", err)
		}
		if len(loaded) == 0 || loaded[0].Len() == 0 {
			return nil, nil, fmt.Errorf("benchmark %s has no prices", benchmarkAsset)
		}
		bench = &loaded[0]
	}
	return batch, bench, nil
}

// loadOne loads exactly one asset (첫 번째 --assets 또는 인자)
func (rt *runtime) loadOne(ctx context.Context, args []string) (contracts.PriceSeries, *contracts.PriceSeries, error) {
	if len(args) > 0 {
		assetList = []string{args[0]}
	}
	if len(assetList) != 1 {
		return contracts.PriceSeries{}, nil, fmt.Errorf("exactly one asset is required (argument or --assets)")
	}
	batch, bench, err := rt.loadBatch(ctx)
	if err != nil {
		return contracts.PriceSeries{}, nil, err
	}
	if len(batch) == 0 {
		return contracts.PriceSeries{}, nil, fmt.Errorf("asset %s not found", assetList[0])
	}
	return batch[0], bench, nil
}

// window parses --from/--to (빈 값은 제한 없음)
func window() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if s := strings.TrimSpace(fromDate); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			return from, to, fmt.Errorf("invalid --from %q: %w", s, err)
		}
	}
	if s := strings.TrimSpace(toDate); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			return from, to, fmt.Errorf("invalid --to %q: %w", s, err)
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}
