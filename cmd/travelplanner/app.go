package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ManupaDev/multi-agent-travel-planner/config"
	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/store"
	"github.com/ManupaDev/multi-agent-travel-planner/store/memory"
	"github.com/ManupaDev/multi-agent-travel-planner/store/postgres"
	redisstore "github.com/ManupaDev/multi-agent-travel-planner/store/redis"
	"github.com/ManupaDev/multi-agent-travel-planner/store/sqlite"
	"github.com/ManupaDev/multi-agent-travel-planner/tool"
	"github.com/ManupaDev/multi-agent-travel-planner/travel"
	"github.com/kataras/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// app holds everything serve needs, built from the configuration
type app struct {
	cfg          *config.Config
	logger       log.Logger
	registry     *prometheus.Registry
	system       *graph.Runnable
	requirements *graph.Runnable
	closers      []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	g := golog.New()
	g.SetPrefix("[travelplanner] ")
	l := log.NewGologLogger(g)
	l.SetLevel(lvl)
	return l, nil
}

// newApp wires stores, capabilities, the model and the travel graphs.
// model may be nil, in which case one is built from cfg.Model.
func newApp(ctx context.Context, cfg *config.Config, logger log.Logger, model llms.Model) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var client redis.UniversalClient
	if cfg.Store.Type == "redis" || cfg.Lock.Type == "redis" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
	}

	checkpoints, err := a.openStore(ctx, client)
	if err != nil {
		return nil, err
	}

	var locker store.ThreadLocker = store.NewLocalLocker()
	if cfg.Lock.Type == "redis" {
		locker = redisstore.NewLocker(client, cfg.Store.Redis.Prefix+"lock:", cfg.Lock.TTL)
	}

	if model == nil {
		if model, err = newModel(cfg.Model); err != nil {
			return nil, err
		}
	}

	deps := travel.Deps{
		Model:  model,
		Tools:  newRegistry(cfg.Capabilities, logger, tool.NewMetrics(a.registry)),
		Logger: logger,
		GraphOptions: []graph.Option{
			graph.WithStore(checkpoints),
			graph.WithLocker(locker),
			graph.WithMaxSteps(cfg.Engine.MaxSteps),
			graph.WithMetrics(graph.NewMetrics(a.registry)),
		},
		ToolConcurrency: cfg.Capabilities.ToolConcurrency,
	}
	if a.system, err = travel.NewSystem(deps); err != nil {
		return nil, err
	}
	if a.requirements, err = travel.NewRequirements(deps); err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *app) openStore(ctx context.Context, client redis.UniversalClient) (store.CheckpointStore, error) {
	cfg := a.cfg.Store
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryCheckpointStore(), nil
	case "redis":
		return redisstore.NewRedisCheckpointStoreWithClient(client, cfg.Redis.Prefix, cfg.Redis.TTL), nil
	case "postgres":
		s, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{
			ConnString: cfg.Postgres.DSN,
			TableName:  cfg.Postgres.Table,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		if cfg.Postgres.MigrateOnStart {
			if err := s.InitSchema(ctx); err != nil {
				return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
			}
		}
		return s, nil
	case "sqlite":
		s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{
			Path:      cfg.Sqlite.Path,
			TableName: cfg.Sqlite.Table,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func newModel(cfg config.ModelConfig) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(cfg.Name)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model %s: %w", cfg.Provider, cfg.Name, err)
	}
	return m, nil
}

func newRegistry(cfg config.CapabilitiesConfig, logger log.Logger, metrics *tool.Metrics) *tool.Registry {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	var search tool.Capability = tool.NewWebSearch(tool.WithSearchClient(client))
	if cfg.WebSearchPerMinute > 0 {
		search = tool.RateLimited(search, tool.PerMinute(cfg.WebSearchPerMinute, cfg.WebSearchBurst))
	}

	return tool.NewRegistry(tool.WithLogger(logger), tool.WithMetrics(metrics)).
		Register(tool.NewTravelAPI(cfg.BaseURL, client).Capabilities()...).
		Register(search)
}
