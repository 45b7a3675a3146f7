package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-booking/internal/api"
	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/events"
	"github.com/hackgods/practice-booking/internal/logging"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/schedule"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Location.String()),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		scheduleRepo schedule.Repository
		ledger       appointment.Ledger
		checks       []api.ReadyCheck
	)

	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.Migrate(pgCtx, pgPool)
		}
		cancelPg()
		if err != nil {
			logger.Fatal("postgres setup error", zap.Error(err))
		}
		defer pgPool.Close()
		logger.Info("connected to Postgres")

		scheduleRepo = schedule.NewPgRepository(pgPool)
		ledger = appointment.NewPgLedger(pgPool)
		checks = append(checks, api.ReadyCheck{Name: "postgres", Critical: true, Check: pgPool.Ping})
	} else {
		logger.Warn("POSTGRES_DSN not set, schedules and appointments are kept in memory")
		scheduleRepo = schedule.NewMemoryRepository()
		ledger = appointment.NewMemoryLedger()
	}

	var locker redisclient.Locker
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.ClientOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
			Timeout:  cfg.RedisTimeout,
		})
		if err != nil {
			logger.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		locker = redisclient.NewRedisProviderLocker(rdb, cfg.LockTTL, cfg.LockWait)
		checks = append(checks, api.ReadyCheck{
			Name:     "redis",
			Critical: true,
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		logger.Warn("redis disabled, provider locks are process local")
		locker = redisclient.NewLocalLocker(redisclient.WaitAtMost(cfg.LockWait))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("kafka publisher error", zap.Error(err))
		}
		publisher = kp
		checks = append(checks, api.ReadyCheck{Name: "kafka", Check: events.ReadyCheck(cfg.KafkaBrokers)})
		logger.Info("publishing appointment events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("error closing event publisher", zap.Error(err))
		}
	}()

	store := schedule.NewStore(scheduleRepo, locker, logger)
	svc := appointment.NewService(store, ledger, locker, publisher, logger,
		appointment.WithClock(func() time.Time { return time.Now().In(cfg.Location) }),
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments: svc,
		Schedules:    store,
		Logger:       logger,
		ReadyChecks:  checks,
		Env:          cfg.Env,
		Version:      version,
		BookingRate:  cfg.BookingRate,
		BookingBurst: cfg.BookingBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("api-server stopped")
}
