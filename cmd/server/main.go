package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/theAriful7/E-CommerceBackend/internal/cache"
	"github.com/theAriful7/E-CommerceBackend/internal/config"
	apphttp "github.com/theAriful7/E-CommerceBackend/internal/http"
	"github.com/theAriful7/E-CommerceBackend/internal/publisher"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"github.com/theAriful7/E-CommerceBackend/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	cred := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDir,
	}

	store, err := repository.NewPostgresStore(cred)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	if err := store.RunMigrations(cred); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("connected to postgres", zap.String("host", cfg.Postgres.Host))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	cartCache := cache.NewBreakerCache(cache.NewRedisCache(redisClient, cfg.Redis.CartTTL))

	cartService := service.NewCartService(store, cartCache, logger)
	orderService := service.NewOrderService(store, cartCache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := publisher.NewOutboxPoller(store, publisher.NewKafkaWriter(cfg.Kafka.BrokerList()...), logger)
	go poller.Run(ctx)

	router := apphttp.NewRouter(
		apphttp.NewCartHandler(cartService, logger),
		apphttp.NewOrderHandler(orderService, logger),
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(router, "marketplace"),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
