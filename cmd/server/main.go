package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"restobook/internal/api"
	"restobook/internal/audit"
	"restobook/internal/clock"
	"restobook/internal/config"
	"restobook/internal/database"
	"restobook/internal/events"
	"restobook/internal/idgen"
	"restobook/internal/lifecycle"
	"restobook/internal/metrics"
	"restobook/internal/repository"
	"restobook/internal/service"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RESTOBOOK_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  repository.RestaurantRepository
		sqlite *repository.SQLiteRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		store = repository.NewMemoryRepository()
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	default:
		sqlite, err = repository.NewSQLiteRepository(cfg.Database.Path, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open db error")
		}
		defer sqlite.Close()
		store = sqlite
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		store = repository.NewCachedRepository(store, rdb, cfg.CacheTTL(), logger)
	}

	clk := clock.System{}
	trail := audit.NewTrail(cfg.Audit.Capacity, cfg.Audit.RetentionDays, clk, logger)
	bus := events.NewEventBus(logger)
	bus.SubscribeAll(trail.Record)
	go startAuditCleanup(ctx, trail)

	ids := idgen.NewSequence(0)
	svc := service.NewRestaurantService(store, ids, clk, bus, service.Options{
		AvailableDatesDays: cfg.AvailableDatesDays(),
		AvailableDatesStep: cfg.AvailableDatesStep(),
	}, logger)

	maxID, err := svc.MaxID(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read stored ids")
	}
	ids.Observe(maxID)

	// Initial load + hot reload of restaurants configuration
	if err := config.WatchRestaurants(ctx, cfg.RestaurantsConfigPath, cfg.RestaurantsWatchInterval(), logger, func(upd config.RestaurantsUpdate) {
		if err := svc.ApplyRestaurantsUpdate(ctx, upd); err != nil {
			logger.Error().Err(err).Msg("failed to apply restaurants config")
			return
		}
		logger.Info().Str("config", upd.Config.String()).Bool("initial", upd.Initial).Msg("restaurants config applied")
	}); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", cfg.RestaurantsConfigPath).Msg("restaurants config not found, starting with stored data")
		} else {
			logger.Error().Err(err).Msg("restaurants watch failed")
		}
	}

	worker := lifecycle.NewWorker(svc, cfg.LifecycleInterval(), logger)
	worker.Start(ctx)
	defer worker.Stop()

	if cfg.Backup.Enabled && sqlite != nil {
		backups := database.NewBackupService(sqlite, cfg.Backup, clk, logger)
		go backups.Start(ctx)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, sqlite, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.HTTP.APIKey == "" {
		logger.Warn().Msg("http.api_key is empty; panel endpoints are not protected")
	}

	server := api.NewHTTPServer(svc, api.Options{
		Addr:           cfg.HTTP.Addr,
		APIKey:         cfg.HTTP.APIKey,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		Location:       cfg.Location(),
		Clock:          clk,
		Audit:          trail,
	}, logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("driver", cfg.Database.Driver).Bool("redis", rdb != nil).Msg("restobook started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("http server error")
		stop()
	}
	logger.Info().Msg("restobook stopped")
}

func startAuditCleanup(ctx context.Context, trail *audit.Trail) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trail.Cleanup()
		}
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, db *repository.SQLiteRepository, rdb *redis.Client, logger *zerolog.Logger) {
	if port == 0 {
		port = 8090
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	if port == 0 {
		port = 9090
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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
