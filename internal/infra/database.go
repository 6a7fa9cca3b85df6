package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresConnectTimeout = 5 * time.Second
	postgresMaxConns       = 10
)

// NewPostgresPool opens the account and transfer-request database. appName is
// reported to Postgres so webhook traffic is identifiable in pg_stat_activity.
func NewPostgresPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > postgresMaxConns {
		cfg.MaxConns = postgresMaxConns
	}
	if cfg.ConnConfig.ConnectTimeout == 0 {
		cfg.ConnConfig.ConnectTimeout = postgresConnectTimeout
	}
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	ctx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
