// Package app wires configuration into a running learning service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/api"
	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/learning"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
)

// App owns the service and every connection opened for it.
type App struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Users   learner.Repository
	Service *learning.Service
	Metrics *metrics.Metrics // nil when disabled
	Checks  map[string]api.CheckFunc

	closers []func()
}

// Open loads the catalog and connects the configured backends. On error,
// anything already opened is closed.
func Open(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Checks: map[string]api.CheckFunc{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Catalog, err = catalog.Load(cfg.Catalog.CoursesPath, cfg.Catalog.QuestionBankPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	var events learning.EventLogger = learning.NopEventLogger{}
	switch cfg.Store.Driver {
	case config.DriverFile:
		repo, err := learner.OpenFileRepository(cfg.Store.UsersPath)
		if err != nil {
			return nil, err
		}
		a.Users = repo

	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.Open(ctx, database.Options{
			Driver:   cfg.Store.Driver,
			URL:      cfg.Database.URL,
			Path:     cfg.Store.SQLitePath,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Checks[cfg.Store.Driver] = db.HealthCheck

		if db.Pool == nil {
			if a.Users, err = learner.NewSQLiteRepository(ctx, db.SQL); err != nil {
				return nil, err
			}
			break
		}
		if a.Users, err = learner.NewPostgresRepository(ctx, db.Pool); err != nil {
			return nil, err
		}
		if events, err = learning.NewPostgresEventLogger(ctx, db.Pool); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	slog.Info("learner store ready", "driver", cfg.Store.Driver)

	var attempts assessment.AttemptStore
	if cfg.Cache.URL == "" {
		attempts = assessment.NewMemoryAttemptStore(cfg.Cache.AttemptTTL)
	} else {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		a.Checks["cache"] = c.HealthCheck
		attempts = assessment.NewRedisAttemptStore(c, cfg.Cache.AttemptTTL)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	a.Service, err = learning.NewService(learning.ServiceConfig{
		Catalog:     a.Catalog,
		Users:       a.Users,
		Attempts:    attempts,
		Credentials: learner.BcryptCredentials{Cost: cfg.Auth.BcryptCost},
		Events:      events,
		Metrics:     a.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Handler returns the HTTP API for the service.
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.Config{
		Service:     a.Service,
		Tokens:      api.NewTokens(a.Config.Auth.JWTSecret, a.Config.Auth.AccessTokenTTL),
		Metrics:     a.Metrics,
		CORSOrigins: a.Config.Server.CORSOrigins,
		Checks:      a.Checks,
	})
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
