package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxelgen/internal/api"
	"github.com/annel0/voxelgen/internal/cache"
	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/config"
	"github.com/annel0/voxelgen/internal/eventbus"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/observability"
	"github.com/annel0/voxelgen/internal/sampler"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/transport/ws"
	"github.com/annel0/voxelgen/internal/workerpool"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
)

// App — корень композиции: окружение мира, пул, кеши, шина и серверы создаются один раз.
type App struct {
	cfg      *config.Config
	env      *world.Env
	registry *prometheus.Registry

	patches    *cache.PatchCache[*chunkgen.GroundPatch]
	blobs      cache.BlobStore
	bus        eventbus.EventBus
	busMetrics *eventbus.MetricsExporter
	table      task.Table
	pool       *workerpool.WorkerPool
	chunks     *ChunkService
	rest       *api.RestServer
	ws         *ws.Server

	shutdownTelemetry observability.ShutdownFunc
	logger            *logging.Logger
}

// New собирает приложение по конфигурации. Пул ещё не запущен.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	env := cfg.World.Env()
	if err := env.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		env:      env,
		registry: prometheus.NewRegistry(),
		logger:   logging.GetComponentLogger("app"),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.GetServiceName(), cfg.Telemetry.Enabled)
	if err != nil {
		return nil, err
	}
	a.shutdownTelemetry = shutdown

	if err := a.initStorage(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initBus(); err != nil {
		a.Close()
		return nil, err
	}

	gen := chunkgen.NewGenerator(env, a.generatorDeps())
	a.table = task.NewTable()
	chunkgen.Register(a.table, gen)
	if err := a.table.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	a.pool = workerpool.New(a.table, workerpool.Options{
		Workers:    cfg.Pool.GetWorkers(),
		Registerer: a.registry,
		Tracer:     observability.Tracer("voxelgen/workerpool"),
	})
	a.chunks = NewChunkService(a.pool, a.blobs, a.bus, cfg.Cache.GetTTL())

	a.ws = ws.NewServer(ws.Options{
		Env:       env,
		Pool:      a.pool,
		Table:     a.table,
		Near:      cfg.View.GetNear(),
		MaxRange:  cfg.View.GetMaxRange(),
		Publisher: a.chunks,
	})
	a.rest = api.NewRestServer(api.Config{
		Addr:     cfg.Server.GetAddr(),
		Chunks:   a.chunks,
		Stats:    a.Stats,
		Registry: a.registry,
		Service:  cfg.Telemetry.GetServiceName(),
	})
	a.rest.Router().GET("/ws", gin.WrapF(a.ws.Handler()))

	a.logger.Info("мир: патч %d, чанк %d, id %d..%d, сид %d",
		env.PatchSize, env.ChunkHeight, env.BottomID, env.TopID, env.Seed)
	return a, nil
}

func (a *App) initStorage() error {
	patches, err := cache.NewPatchCache[*chunkgen.GroundPatch](a.cfg.Cache.GetPatchMaxCost())
	if err != nil {
		return err
	}
	a.patches = patches

	cold, err := cache.NewBadgerStore(a.cfg.Cache.BadgerPath)
	if err != nil {
		return err
	}

	addr := a.cfg.Cache.GetRedisAddr()
	if addr == "" {
		a.blobs = cold
		return nil
	}
	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:       addr,
		DB:         a.cfg.Cache.RedisDB,
		DefaultTTL: a.cfg.Cache.GetTTL(),
	}, cold)
	if err != nil {
		a.logger.Warn("Redis недоступен, блобы хранятся локально: %v", err)
		a.blobs = cold
		return nil
	}
	a.blobs = redisCache
	return nil
}

func (a *App) initBus() error {
	if url := a.cfg.EventBus.GetURL(); url != "" {
		bus, err := eventbus.NewJetStreamBus(url, a.cfg.EventBus.Stream, a.cfg.EventBus.GetRetention())
		if err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
		a.bus = bus
	} else {
		a.bus = eventbus.NewMemoryBus(a.cfg.EventBus.GetBuffer())
	}

	if _, err := eventbus.StartLoggingListener(context.Background(), a.bus); err != nil {
		return err
	}
	a.busMetrics = eventbus.NewMetricsExporter(a.bus, a.registry)
	a.busMetrics.Start()
	return nil
}

func (a *App) generatorDeps() chunkgen.Deps {
	w := a.cfg.World
	lands := block.DefaultLandTable()
	deps := chunkgen.Deps{
		Ground: sampler.NewPerlinGround(a.env.Seed, lands),
		Lands:  lands,
		Cache:  a.patches,
	}
	if w.Caves {
		deps.Caves = sampler.NewPerlinCaves(a.env.Seed)
	}
	if w.Items {
		deps.Items = sampler.NewScatterItems(a.env, deps.Ground, uint64(max(w.TreeDensity, 0)))
	}
	return deps
}

// Env возвращает окружение мира
func (a *App) Env() *world.Env { return a.env }

// Chunks возвращает сервис блобов
func (a *App) Chunks() *ChunkService { return a.chunks }

// Router возвращает HTTP маршрутизатор
func (a *App) Router() *gin.Engine { return a.rest.Router() }

// Start запускает пул исполнителей
func (a *App) Start(ctx context.Context) error {
	return a.pool.Start(ctx)
}

// Run запускает пул и REST сервер и блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.rest.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.ws.Close()
		return a.rest.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Stats собирает состояние подсистем для /api/stats
func (a *App) Stats() map[string]any {
	stats := map[string]any{
		"pool":        a.pool.Stats(),
		"connections": a.ws.Connections(),
		"patch_cache": a.patches.Metrics(),
		"blob_cache":  a.blobs.Metrics(),
	}
	if a.bus != nil {
		stats["eventbus"] = a.bus.Metrics()
	}
	return stats
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() error {
	var errs []error
	if a.pool != nil {
		a.pool.Close()
	}
	if a.busMetrics != nil {
		a.busMetrics.Stop()
	}
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.blobs != nil {
		errs = append(errs, a.blobs.Close())
	}
	if a.patches != nil {
		a.patches.Close()
	}
	if a.shutdownTelemetry != nil {
		errs = append(errs, a.shutdownTelemetry(context.Background()))
	}
	return errors.Join(errs...)
}
