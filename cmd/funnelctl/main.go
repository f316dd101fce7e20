// cmd/funnelctl/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/cli"
	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/database"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/submission"
)

type migrator struct {
	db *sql.DB
}

func (m migrator) Up(ctx context.Context) error     { return submission.Migrate(ctx, m.db) }
func (m migrator) Down(ctx context.Context) error   { return submission.MigrateDown(ctx, m.db) }
func (m migrator) Status(ctx context.Context) error { return submission.MigrationStatus(ctx, m.db) }
func (m migrator) Version(ctx context.Context) (int64, error) {
	return submission.SchemaVersion(ctx, m.db)
}

func open(ctx context.Context, configPath string) (*cli.Backend, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	log := logger.NewStructured(logger.Options{Level: "warn", Format: "console", Output: "stderr"})

	pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres, database.OncePolicy, log)
	if err != nil {
		return nil, err
	}

	repo := submission.NewRepository(pg.DB, log)
	return &cli.Backend{
		Admin:    admin.NewService(admin.Dependencies{Store: repo}, log),
		Migrator: migrator{db: pg.DB},
		Close:    pg.Close,
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRoot(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
