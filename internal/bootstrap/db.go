package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creatorhub/platform-api/config"
	"github.com/creatorhub/platform-api/internal/storage/postgres"
)

// OpenDB connects to Postgres and applies the schema.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*postgres.DB, error) {
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := postgres.Migrate(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	slog.InfoContext(ctx, "database ready", "driver", cfg.Driver, "host", cfg.Host, "name", cfg.Name)
	return db, nil
}
