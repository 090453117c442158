// Package database opens the relational backends a learner store can live
// on: a pgx pool for PostgreSQL or an embedded SQLite file for single-node
// deployments.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend drivers understood by Open.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

const applicationName = "pai-learn"

// Options selects and tunes a backend. URL and the connection limits apply
// to Postgres, Path to SQLite.
type Options struct {
	Driver   string
	URL      string
	Path     string
	MaxConns int
	MinConns int
}

// DB is an open backend. Exactly one of Pool and SQL is set, matching Driver.
type DB struct {
	Driver string
	Pool   *pgxpool.Pool
	SQL    *sql.DB
}

// Open connects to the backend named by opts.Driver and verifies it answers.
func Open(ctx context.Context, opts Options) (*DB, error) {
	switch opts.Driver {
	case Postgres:
		pool, err := openPool(ctx, opts.URL, opts.MaxConns, opts.MinConns)
		if err != nil {
			return nil, err
		}
		return &DB{Driver: Postgres, Pool: pool}, nil
	case SQLite:
		db, err := openSQLite(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return &DB{Driver: SQLite, SQL: db}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context, url string, maxConns, minConns int) (*pgxpool.Pool, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		return nil, fmt.Errorf("max connections must be positive, got %d", maxConns)
	}
	if minConns > maxConns {
		return nil, fmt.Errorf("min connections (%d) exceeds max connections (%d)", minConns, maxConns)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Close releases the backend's connections.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.SQL != nil {
		db.SQL.Close()
	}
}

// HealthCheck verifies the backend still answers.
func (db *DB) HealthCheck(ctx context.Context) error {
	switch {
	case db.Pool != nil:
		return db.Pool.Ping(ctx)
	case db.SQL != nil:
		return db.SQL.PingContext(ctx)
	}
	return fmt.Errorf("database is not open")
}
