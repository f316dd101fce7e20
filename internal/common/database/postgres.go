package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"

	_ "github.com/lib/pq"
)

// Postgres holds the submissions database pool.
type Postgres struct {
	DB *sql.DB
}

// OpenPostgres configures the pool without dialing.
func OpenPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Postgres{DB: db}, nil
}

// ConnectPostgres opens the pool and waits until the server answers.
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig, policy RetryPolicy, log logger.Logger) (*Postgres, error) {
	pg, err := OpenPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := WaitReady(ctx, "postgres", pg, policy, log); err != nil {
		pg.Close()
		return nil, err
	}
	log.Info("postgres connected", map[string]interface{}{
		"host":     cfg.Host,
		"database": cfg.Database,
	})
	return pg, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
