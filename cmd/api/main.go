package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentals/internal/api"
	"rentals/internal/config"
	"rentals/internal/database"
	"rentals/internal/domain"
	"rentals/internal/events"
	"rentals/internal/logging"
	"rentals/internal/metrics"
	"rentals/internal/mongodb"
	"rentals/internal/repository"
	"rentals/internal/service"
	"rentals/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml (overrides CONFIG_PATH)")
	flag.Parse()

	cfg, logger, closer, err := loadConfigAndLogger(*configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer (func() { _ = store.Close() })()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	locker, cache := initCoordination(cfg, redisClient, &logger)

	bus := events.NewEventBus()
	bus.SubscribeAll(events.CatalogEvents, func(*events.Event) error {
		return cache.Invalidate(context.Background())
	})

	retry := worker.RetryPolicy{
		MaxRetries:    cfg.Reviews.MaxRetries,
		InitialDelay:  cfg.Reviews.InitialDelay,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}

	svcs := api.Services{
		Catalog:   service.NewCatalogService(store, cache, bus, retry, &logger),
		Bookings:  service.NewBookingService(store, locker, bus, service.BookingPolicyFromConfig(cfg.Booking), &logger),
		Reviews:   service.NewReviewService(store, bus, retry, &logger),
		Favorites: service.NewFavoriteService(store, store, &logger),
		Users:     service.NewUserService(store, &logger),
		Health:    store,
	}
	httpServer := api.NewHTTPServer(cfg.API, svcs, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger(configPath string) (*config.Config, zerolog.Logger, io.Closer, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.Database.Mongo, logger)
		if err != nil {
			logger.Error().Err(err).Str("db", cfg.Database.Mongo.Name).Msg("connect mongo")
			return nil, err
		}
		return store, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, err
		}
		if cfg.Database.Backup.Enabled {
			backups := database.NewBackupService(db, cfg.Database.Backup, logging.Component(logger, "backup"))
			go backups.Start(ctx)
		}
		return db, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCoordination выбирает блокировки и кэш поиска: redis, если он есть, иначе память процесса.
func initCoordination(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) (domain.Locker, domain.SearchCache) {
	if client == nil {
		logger.Info().Msg("using in-process locks and search cache")
		return repository.NewMemoryLocker(), repository.NewMemorySearchCache(cfg.Redis.CacheTTL)
	}

	locker := repository.NewFailoverLocker(
		repository.NewRedisLocker(client, cfg.Booking.LockTTL),
		repository.NewMemoryLocker(),
		logging.Component(logger, "locker"),
	)
	cache := repository.NewRedisSearchCache(client, cfg.Redis.CacheTTL, logging.Component(logger, "search-cache"))
	return locker, cache
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().
		Str("http_addr", httpServer.Addr()).
		Str("driver", cfg.Database.Driver).
		Str("status_policy", cfg.Booking.StatusPolicy).
		Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
