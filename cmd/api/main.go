package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/platform-api/config"
	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/auth/webhook"
	"github.com/creatorhub/platform-api/internal/bootstrap"
	"github.com/creatorhub/platform-api/internal/jobs"
	"github.com/creatorhub/platform-api/internal/logging"
	profilesrepo "github.com/creatorhub/platform-api/internal/profiles/repository"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
	referralsvc "github.com/creatorhub/platform-api/internal/referrals/service"
	"github.com/creatorhub/platform-api/internal/reporting"
)

const serviceName = "platform-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.App.LogLevel)
	bootstrap.SetGinMode(&cfg.App)

	sentryEnabled, err := reporting.Init(&cfg.App)
	if err != nil {
		slog.Error("sentry init failed", "error", err)
	}
	defer reporting.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		// Degrade to in-process limiting and replay tracking.
		slog.Warn("redis unavailable, using in-process fallbacks", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	authClient, err := identity.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		slog.Error("firebase init failed", "error", err)
		os.Exit(1)
	}
	provider := identity.NewFirebaseProvider(authClient, cfg.Auth.SessionTTL)

	repo := profilesrepo.NewProfileRepository(db.DB)
	profiles := profilesvc.NewProfileService(repo)
	referrals := referralsvc.NewReferralService(repo)

	webhooks, err := buildWebhooks(cfg, rdb, profiles)
	if err != nil {
		slog.Error("webhook setup failed", "error", err)
		os.Exit(1)
	}

	scheduler := jobs.NewScheduler()
	if err := scheduler.AddReferralBackfill(cfg.Jobs.ReferralBackfillSchedule, cfg.Jobs.ReferralBackfillBatch, profiles); err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Config:      cfg,
		DB:          db.DB,
		Redis:       rdb,
		Provider:    provider,
		Profiles:    profiles,
		Referrals:   referrals,
		Webhooks:    webhooks,
		Sentry:      sentryEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	scheduler.Stop(shutdownCtx)
}

func buildWebhooks(cfg *config.Config, rdb *redis.Client, profiles *profilesvc.ProfileService) (*webhook.Handler, error) {
	if cfg.Auth.WebhookSigningSecret == "" {
		slog.Warn("WEBHOOK_SIGNING_SECRET not set, identity webhooks disabled")
		return nil, nil
	}
	verifier, err := webhook.NewVerifier(cfg.Auth.WebhookSigningSecret)
	if err != nil {
		return nil, err
	}

	var replay webhook.ReplayGuard = webhook.NewMemoryReplayGuard(webhook.DefaultReplayTTL)
	if rdb != nil {
		replay = webhook.NewRedisReplayGuard(rdb, "webhook", webhook.DefaultReplayTTL)
	}
	return webhook.NewHandler(verifier, replay, profiles), nil
}
