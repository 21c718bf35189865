// cmd/advisor/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gaming-advisor/internal/api"
	"gaming-advisor/internal/catalog"
	"gaming-advisor/internal/common/config"
	"gaming-advisor/internal/common/database"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/common/observability"
	"gaming-advisor/internal/library"
	"gaming-advisor/internal/recommend"
	"gaming-advisor/internal/steam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting gaming advisor", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// Postgres
	var pg *database.PostgresClient
	err = retryWithBackoff(5, 2*time.Second, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	})
	if err != nil {
		log.WithError(err).Error("postgres connection failed", nil)
		os.Exit(1)
	}
	defer pg.Close()

	// Redis mirror is optional; a failed connection only disables it.
	var redisClient *database.RedisClient
	if cfg.Cache.RedisMirror {
		err = retryWithBackoff(3, 2*time.Second, func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without cache mirror", nil)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	steamClient := steam.NewClient(cfg.Steam, log)
	cache := catalog.NewCache(steamClient, config.GetDuration(cfg.Cache.TTL), redisClient, log)
	repo := library.NewRepository(pg)
	engine := recommend.NewEngine(repo, cache, cfg.Recommend, log)

	handler := api.NewHandler(engine, log)
	server := api.NewServer(cfg.Server, handler, obs, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server failed", nil)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed", nil)
	}

	log.Info("gaming advisor stopped", nil)
}

// retryWithBackoff retries fn with a doubling delay between attempts.
func retryWithBackoff(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
