package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/bot"
	"github.com/arifmahmud/uptimebot/internal/config"
	"github.com/arifmahmud/uptimebot/internal/engine"
	"github.com/arifmahmud/uptimebot/internal/httpapi"
	"github.com/arifmahmud/uptimebot/internal/httpapi/middleware"
	"github.com/arifmahmud/uptimebot/internal/logging"
	"github.com/arifmahmud/uptimebot/internal/notify"
	"github.com/arifmahmud/uptimebot/internal/probe"
	"github.com/arifmahmud/uptimebot/internal/repo"
	"github.com/arifmahmud/uptimebot/internal/repo/postgres"
	"github.com/arifmahmud/uptimebot/internal/repo/sqlite"
	"github.com/arifmahmud/uptimebot/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repo.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_open_error", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		logger.Info("store_ready", zap.String("backend", "postgres"))
	} else {
		sq, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			logger.Fatal("sqlite_open_error", zap.Error(err))
		}
		defer sq.Close()
		store = sq
		logger.Info("store_ready", zap.String("backend", "sqlite"), zap.String("path", cfg.DBPath))
	}

	var notifier notify.Notifier
	if tg := notify.NewTelegram(cfg.BotToken); tg != nil {
		notifier = tg
	} else {
		logger.Warn("bot_token_missing_alerts_to_log")
		notifier = &notify.Log{Logger: logger}
	}

	sched := scheduler.New(logger, store, probe.NewHTTPChecker(cfg.ProbeTimeout), notifier, cfg.ProbeTimeout)
	if err := sched.Resync(ctx); err != nil {
		logger.Fatal("scheduler_resync_error", zap.Error(err))
	}

	eng := engine.NewService(store, sched, cfg.AdminID, logger)

	api := httpapi.NewServer(logger, eng, cfg.AdminID,
		middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
		cfg.PublicRPM, cfg.PublicBurst)
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api_serve_error", zap.Error(err))
		}
	}()

	if cfg.BotToken != "" {
		go bot.New(cfg.BotToken, cfg.AdminID, eng, logger).Run(ctx)
	} else {
		logger.Warn("bot_disabled_no_token")
	}

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sched.Stop()
}
