// Package app wires the investigator's components from configuration.
package app

import (
	"context"
	"fmt"

	"doc-investigator/internal/cache"
	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/database"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/observability"
	"doc-investigator/internal/common/validation"
	"doc-investigator/internal/documents"
	"doc-investigator/internal/interactionlog"
	"doc-investigator/internal/investigation"
	"doc-investigator/internal/llm"
	"doc-investigator/internal/session"
	"doc-investigator/pkg/registry"

	"github.com/redis/go-redis/v9"
)

// App holds every long-lived component of one investigator process.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability

	SQL           *database.SQLClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient

	Model        *llm.Client
	Interactions interactionlog.Log
	Service      *investigation.Service
	Validator    *validation.Validator

	closers []func()
}

// Options overrides parts of the default wiring.
type Options struct {
	Observability *observability.Observability
	// Model replaces the HTTP model client.
	Model investigation.Completer
}

// New opens the stores named in cfg, applies migrations and builds the
// engine. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log, Observability: opts.Observability}
	if a.Observability == nil {
		a.Observability = observability.NewNoop()
	}
	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg, log := a.Config, a.Logger
	if err := a.openStores(ctx); err != nil {
		return err
	}

	var redisClient *redis.Client
	if a.Redis != nil {
		redisClient = a.Redis.Client
	}

	answers, closeCache, err := cache.New(cfg, a.SQL, redisClient, log)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	a.closers = append(a.closers, closeCache)

	a.Interactions, err = interactionlog.New(cfg, a.SQL, a.Elasticsearch, log)
	if err != nil {
		return fmt.Errorf("build interaction log: %w", err)
	}

	var sessionClient redis.Cmdable
	if redisClient != nil {
		sessionClient = redisClient
	}
	sessions, err := session.New(cfg.Storage.SessionBackend, sessionClient)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}

	model := opts.Model
	if model == nil {
		a.Model = llm.NewClient(llm.ConfigFrom(cfg), log)
		model = a.Model
	}

	reg, err := registry.Default()
	if err != nil {
		return err
	}
	a.Validator, err = validation.NewValidator(reg)
	if err != nil {
		return err
	}

	engine := investigation.NewEngine(investigation.SettingsFromConfig(cfg), investigation.Dependencies{
		Documents:     documents.NewProcessor(cfg.Investigation, log),
		Model:         model,
		Cache:         answers,
		Log:           a.Interactions,
		Observability: a.Observability,
	}, log)
	a.Service = investigation.NewService(engine, sessions, config.GetDuration(cfg.Storage.SessionTTL), log)

	log.Info("investigator ready", map[string]interface{}{
		"storage":  cfg.Storage.Backend,
		"cache":    cfg.Storage.CacheBackend,
		"sessions": cfg.Storage.SessionBackend,
		"model":    cfg.LLM.Model,
	})
	return nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config

	sqlClient, err := database.OpenSQL(cfg)
	if err != nil {
		return err
	}
	a.SQL = sqlClient
	a.closers = append(a.closers, func() { _ = sqlClient.Close() })

	if err := database.RunMigrations(ctx, sqlClient); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if config.UsesRedis(cfg) {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		a.Redis = rc
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	if cfg.Storage.MirrorToElasticsearch {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		a.Elasticsearch = es
	}
	return nil
}

// Pingers lists the stores /ready checks.
func (a *App) Pingers() map[string]database.Pinger {
	deps := map[string]database.Pinger{"sql": a.SQL}
	if a.Redis != nil {
		deps["redis"] = a.Redis
	}
	if a.Elasticsearch != nil {
		deps["elasticsearch"] = a.Elasticsearch
	}
	return deps
}

// BreakerState reports the model circuit, or "n/a" when the model was replaced.
func (a *App) BreakerState() string {
	if a.Model == nil {
		return "n/a"
	}
	return a.Model.BreakerState()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
