package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cct-academy/course-portal/api"
	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/router"
	"github.com/cct-academy/course-portal/services/cron"
	"github.com/cct-academy/course-portal/services/storage"
	"github.com/cct-academy/course-portal/utils/cache"
	"github.com/cct-academy/course-portal/utils/logger"
	"go.uber.org/zap"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	cfg, err := config.Get()
	if err != nil {
		return err
	}

	log := logger.NewForEnvironment(cfg.Env, cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	client, err := database.Start(cfg)
	if err != nil {
		log.Error("database service is not reachable, check SUPABASE_URL and SUPABASE_ANON_KEY", zap.Error(err))
		return err
	}

	objects, err := storage.New(cfg, client)
	if err != nil {
		return fmt.Errorf("failed to set up template storage: %w", err)
	}

	deps := router.Dependencies{
		Config:  cfg,
		Client:  client,
		Objects: objects,
		Logger:  log,
	}

	// Redis only backs the login lockout; run without it when unreachable
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			log.Warn("redis unavailable, brute force protection disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			deps.Attempts = redisCache
		}
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", cfg.Port), log)
	svc := router.SetupRoutes(server.GetEngine(), deps)

	// Subscriptions are also expired on demand from the admin panel
	var cronManager *cron.CronManager
	if cfg.Cron.Enabled {
		cronManager = cron.NewCronManager(func(ctx context.Context) (int, error) {
			return svc.Subscriptions.ExpireAll(ctx)
		}, log)
		if err := cronManager.Start(cfg.Cron.ExpireSchedule); err != nil {
			log.Warn("failed to start cron jobs", zap.Error(err))
			cronManager = nil
		}
	}
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
