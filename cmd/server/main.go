// Command esign-server starts the e-signature service: the provider webhook
// endpoint plus the portal-facing signature API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/peoplelane/esign/internal/config"
	"github.com/peoplelane/esign/internal/dedup"
	"github.com/peoplelane/esign/internal/migrate"
	"github.com/peoplelane/esign/internal/provider"
	"github.com/peoplelane/esign/internal/repository/postgres"
	"github.com/peoplelane/esign/internal/server/httpapi"
	"github.com/peoplelane/esign/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.Int("port", cfg.Port),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	docRepo := postgres.NewDocumentRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	notifRepo := postgres.NewNotificationRepo(db)

	// Optional Redis replay filter
	var filter service.ReplayFilter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("parse redis url", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, replay filter disabled", zap.Error(err))
		} else {
			filter = dedup.NewFilter(rdb)
		}
	}

	// Provider client over an oauth2 client-credentials transport
	var httpClient *http.Client
	if cfg.Provider.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.Provider.ClientID,
			ClientSecret: cfg.Provider.ClientSecret,
			TokenURL:     cfg.Provider.TokenURL,
		}
		httpClient = cc.Client(ctx)
	} else {
		httpClient = &http.Client{Timeout: cfg.Provider.Timeout}
	}
	prov := provider.NewHTTPClient(httpClient, cfg.Provider.BaseURL, cfg.Provider.Timeout)

	// Services
	sigSvc := service.NewSignatureService(docRepo, auditRepo, notifRepo, prov, logger)
	evtSvc := service.NewEventService(docRepo, auditRepo, notifRepo, filter, logger, 3)

	api := httpapi.NewServer(sigSvc, evtSvc, []byte(cfg.WebhookSecret), logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
