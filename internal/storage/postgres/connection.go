package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/creatorhub/platform-api/config"
)

const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// DB is a database/sql handle over either a pgx pool or lib/pq.
type DB struct {
	*sql.DB
	pool *pgxpool.Pool
}

func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case DriverPQ:
		db, err = openPQ(cfg)
	case "", DriverPgx:
		db, err = openPgx(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	// Fail fast
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openPQ(cfg *config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open(DriverPQ, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MinConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{DB: sqlDB}, nil
}

func openPgx(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &DB{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}
