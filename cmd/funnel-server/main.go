// cmd/funnel-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/api"
	"tulipai-funnel/internal/assistant"
	awsclients "tulipai-funnel/internal/common/aws"
	"tulipai-funnel/internal/common/camunda"
	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/database"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/observability"
	"tulipai-funnel/internal/common/zoho"
	"tulipai-funnel/internal/funnel/draft"
	"tulipai-funnel/internal/funnel/wizard"
	"tulipai-funnel/internal/notification"
	"tulipai-funnel/internal/payment"
	"tulipai-funnel/internal/submission"
	"tulipai-funnel/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("Starting funnel server...", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.ReadinessCheck{}

	// --- PostgreSQL ---
	pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres, database.StartupPolicy, log)
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping

	if cfg.Database.Postgres.AutoMigrate {
		if err := submission.Migrate(ctx, pg.DB); err != nil {
			zapLog.Fatal("migration failed", zap.Error(err))
		}
		version, _ := submission.SchemaVersion(ctx, pg.DB)
		log.Info("schema up to date", map[string]interface{}{"version": version})
	}
	repo := submission.NewRepository(pg.DB, log)

	// --- Elasticsearch (optional) ---
	var index *submission.Index
	if cfg.Database.Elasticsearch.Enabled {
		index = connectSearch(ctx, cfg, log, checks)
	}

	// --- Redis (draft store) ---
	var redisStore *database.Redis
	if cfg.Funnel.DraftStore == "redis" {
		redisStore, err = database.ConnectRedis(ctx, cfg.Database.Redis, database.StartupPolicy, log)
		if err != nil {
			zapLog.Fatal("redis unavailable", zap.Error(err))
		}
		defer redisStore.Close()
		checks["redis"] = redisStore.Ping
	}

	// --- Collaborators ---
	assistantSvc := assistant.New(assistant.LoadConfig(cfg.APIs), log)
	notifier := newNotifier(ctx, cfg, log)

	adminDeps := admin.Dependencies{Store: repo, Writer: assistantSvc, Mailer: notifier}
	if index != nil {
		adminDeps.Search = index
	}
	adminSvc := admin.NewService(adminDeps, log)

	var crm *zoho.CRMClient
	if cfg.Integrations.Zoho.Enabled {
		crm = zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken, 30*time.Second)
	}
	handlers := newHandlers(cfg, repo, index, crm, notifier, adminSvc, log)

	// --- Post-submission workflow ---
	var listener wizard.SubmissionListener
	var zeebe *camunda.Client
	var jobWorkers *camunda.Workers
	var runner *workflow.LocalRunner

	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe client init failed", zap.Error(err))
		}
		if err := database.WaitReady(ctx, "zeebe", database.PingerFunc(zeebe.HealthCheck), database.StartupPolicy, log); err != nil {
			zapLog.Fatal("zeebe unavailable", zap.Error(err))
		}
		defer zeebe.Close()
		checks["zeebe"] = zeebe.HealthCheck

		if cfg.Camunda.ProcessFile != "" {
			key, err := zeebe.DeployProcess(ctx, cfg.Camunda.ProcessFile)
			if err != nil {
				zapLog.Fatal("process deployment failed", zap.Error(err))
			}
			log.Info("process deployed", map[string]interface{}{
				"file": cfg.Camunda.ProcessFile,
				"key":  key,
			})
		}

		jobWorkers = camunda.NewWorkers(zeebe.GetClient(), log)
		handlers.start(jobWorkers, cfg)
		defer jobWorkers.Close()

		listener = workflow.NewPublisher(zeebe, cfg.Camunda.ProcessID,
			config.GetDuration(cfg.Camunda.RequestTimeout), log)
	} else {
		runner = workflow.NewLocalRunner(workflow.DefaultLocalConfig(), handlers.tasks(cfg), obs, log)
		listener = runner
		log.Info("camunda disabled, running intake tasks in-process", nil)
	}

	// --- Sessions and HTTP ---
	payments := payment.NewSimulated(payment.LoadConfig(cfg.Payment), log)
	wizardCfg := wizard.LoadConfig(cfg.Funnel)
	draftOpts := draft.FactoryOptions{
		Kind:   cfg.Funnel.DraftStore,
		TTL:    time.Duration(cfg.Funnel.DraftTTL) * time.Second,
		File:   cfg.Funnel.DraftFile,
		Logger: log,
	}
	if redisStore != nil {
		draftOpts.Redis = redisStore.Client
	}
	drafts, err := draft.NewFactory(draftOpts)
	if err != nil {
		zapLog.Fatal("draft store init failed", zap.Error(err))
	}

	sessions := api.NewSessions(
		time.Duration(cfg.Funnel.SessionTTL)*time.Second,
		cfg.Funnel.DraftKey,
		func(draftKey string) *wizard.Controller {
			return wizard.NewController(wizardCfg, wizard.Dependencies{
				Guides:   assistantSvc,
				Drafts:   drafts(draftKey),
				Gateway:  repo,
				Payment:  payments,
				Listener: listener,
			}, log)
		},
		log,
	)
	go sessions.Run(ctx, time.Minute)

	server := api.NewServer(sessions, adminSvc, api.Options{
		AdminToken: cfg.Admin.APIToken,
		Checks:     checks,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping server...", nil)
	case err := <-errCh:
		log.Error("HTTP server failed", map[string]interface{}{"error": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", map[string]interface{}{"error": err})
	}
	sessions.Wait()
	if runner != nil {
		runner.Wait()
	}

	log.Info("Funnel server stopped gracefully", nil)
}

func connectSearch(ctx context.Context, cfg *config.Config, log logger.Logger, checks map[string]api.ReadinessCheck) *submission.Index {
	policy := database.StartupPolicy
	policy.Attempts = 3
	es, err := database.ConnectElasticsearch(ctx, cfg.Database.Elasticsearch, policy, log)
	if err != nil {
		log.Error("elasticsearch unavailable, analytics disabled", map[string]interface{}{"error": err})
		return nil
	}

	index := submission.NewIndex(es.Client, cfg.Database.Elasticsearch.Index, log)
	if err := index.EnsureIndex(ctx); err != nil {
		log.Error("failed to ensure search index", map[string]interface{}{"error": err})
		return nil
	}
	checks["elasticsearch"] = es.Ping
	return index
}

// newNotifier wires SES and SNS when their channels are enabled. When the
// AWS configuration cannot be loaded both channels stay off.
func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) *notification.Notifier {
	ncfg := notification.LoadConfig(cfg)

	channels, err := awsclients.NewChannels(ctx, awsclients.ChannelOptions{
		Region: cfg.Integrations.AWS.Region,
		Email:  ncfg.EmailEnabled,
		SMS:    ncfg.SMSEnabled,
	})
	if err != nil {
		log.Error("AWS client init failed, notifications disabled", map[string]interface{}{"error": err})
	}

	return notification.NewNotifier(ncfg, channels.Email, channels.SMS, log)
}
