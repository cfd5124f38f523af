// Package main запускает HTTP-сервер сервиса проката автомобилей.
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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/car-rental-system/internal/config"
	"github.com/mmeshcher/car-rental-system/internal/events"
	"github.com/mmeshcher/car-rental-system/internal/handler"
	"github.com/mmeshcher/car-rental-system/internal/middleware"
	"github.com/mmeshcher/car-rental-system/internal/repository"
	"github.com/mmeshcher/car-rental-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// .env необязателен: в контейнере параметры приходят из окружения.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sugar.Warnw("failed to load .env", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		sugar.Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI, cfg.LockTimeout)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, events.DefaultQueue, logger)
		if err != nil {
			sugar.Warnw("event publishing disabled", "error", err.Error())
		} else {
			publisher = p
		}
	}

	svc := service.NewService(repo, publisher, logger, loc)
	defer svc.Close()

	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			sugar.Warnw("redis is unreachable, rate limiter will fail open", "addr", cfg.RedisAddr, "error", err.Error())
		}
		cancel()

		limiter = middleware.NewRedisTokenBucket(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefillEvery)
	}

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT secret is not set, issued tokens will not be accepted")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, limiter)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Сверка статусов автомобилей с выданными бронированиями
	g.Go(func() error {
		svc.ReconcileCarStatuses(ctx)
		return svc.RunStatusReconciler(ctx, cfg.ReconcileInterval)
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting car rental server", "addr", cfg.RunAddress, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
