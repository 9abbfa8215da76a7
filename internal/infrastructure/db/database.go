package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/avatarctic/catalog-service/configs"
	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/core/ports"
)

const defaultAcquireTimeout = 2 * time.Second

type Database struct {
	DB *sqlx.DB

	acquireTimeout time.Duration
	maxIdle        int
	waiting        atomic.Int64
}

// NewDatabaseWithConfig opens a DB using the provided DatabaseConfig and applies pool settings.
func NewDatabaseWithConfig(cfg *configs.DatabaseConfig) (*Database, error) {
	dbx, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := Wrap(dbx, cfg)

	// Use PingContext with timeout to avoid hanging at startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

// Wrap applies pool settings from cfg to an already opened handle.
func Wrap(dbx *sqlx.DB, cfg *configs.DatabaseConfig) *Database {
	if cfg.MaxOpenConns > 0 {
		dbx.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		dbx.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		dbx.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.IdleTimeout > 0 {
		dbx.SetConnMaxIdleTime(cfg.IdleTimeout)
	}
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultAcquireTimeout
	}
	return &Database{DB: dbx, acquireTimeout: timeout, maxIdle: cfg.MaxIdleConns}
}

// Acquire takes a connection from the pool, waiting at most the configured
// connection timeout. A saturated pool yields product.ErrPoolExhausted instead
// of queueing the caller indefinitely. The caller must Close the connection.
func (d *Database) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	d.waiting.Add(1)
	defer d.waiting.Add(-1)

	acquireCtx, cancel := context.WithTimeout(ctx, d.acquireTimeout)
	defer cancel()

	conn, err := d.DB.Connx(acquireCtx)
	if err != nil {
		// The caller's own cancellation is not pool exhaustion.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no connection within %s", product.ErrPoolExhausted, d.acquireTimeout)
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// PoolStats reports the pool's current shape for the operational endpoint.
func (d *Database) PoolStats() ports.PoolStats {
	s := d.DB.Stats()
	return ports.PoolStats{
		Total:   s.OpenConnections,
		Idle:    s.Idle,
		InUse:   s.InUse,
		Waiting: int(d.waiting.Load()),
		Max:     s.MaxOpenConnections,
		Min:     d.maxIdle,
	}
}

func (d *Database) Name() string { return "database" }

// Close releases the pool. Connections still checked out are closed when returned.
func (d *Database) Close(_ context.Context) error {
	return d.DB.Close()
}

func (d *Database) Migrate(migrationsPath string) error {
	driver, err := postgres.WithInstance(d.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
