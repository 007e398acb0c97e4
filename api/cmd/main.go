package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/event"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/memory"
	rabbitpub "github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/messaging/rabbitmq"
	redisinfra "github.com/baechuer/real-time-ressys/services/registration-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/security"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/rest"
)

// sysClock implements the Clock ports using system time
type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// Stores is the persistence the app runs on: postgres in production,
// the in-memory store for local runs and tests.
type Stores struct {
	Events        event.EventRepo
	Registrations registration.Store
}

// App holds all dependencies for the service
type App struct {
	Config *config.Config
	Server *http.Server
	Cache  *redisinfra.Cache
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	logger.Init()
	log := appLogger(cfg.AppEnv)

	// Root ctx with signal cancellation
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Storage ----
	var (
		stores  Stores
		pgStore *postgres.Store
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := memory.New()
		stores = Stores{Events: mem, Registrations: mem}
		log.Warn().Msg("using in-memory store: data is lost on restart and domain events are not published")
	default:
		pool, err := postgres.NewPool(rootCtx, cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect failed")
		}
		defer pool.Close()
		db := postgres.OpenDB(pool)
		defer db.Close()

		pgStore = postgres.NewStore(pool)
		stores = Stores{Events: postgres.NewEventRepo(db), Registrations: pgStore}
		log.Info().Msg("postgres connected")
	}

	// ---- Redis (optional) ----
	var cache *redisinfra.Cache
	if cfg.RedisAddr != "" {
		cache = redisinfra.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cache.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			// best effort: the cache and limiter fail open
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
		cancel()
	}

	// ---- Outbox relay ----
	if pgStore != nil && cfg.OutboxEnabled {
		if cfg.RabbitURL == "" {
			log.Warn().Msg("RABBITMQ_URL empty: outbox rows will accumulate unpublished")
		} else {
			pub, err := rabbitpub.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
			if err != nil {
				log.Fatal().Err(err).Msg("rabbit publisher init failed")
			}
			defer pub.Close()
			pgStore.StartOutboxWorker(rootCtx, pub)
			log.Info().Str("exchange", pub.Exchange()).Msg("outbox worker started")
		}
	}

	app := NewApp(cfg, stores, cache)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server starting")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server crash
	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = app.Server.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}

// appLogger adds the env tag. The service tag comes from logger.Init.
func appLogger(env string) zerolog.Logger {
	return logger.Logger.With().Str("env", env).Logger()
}

// NewApp wires services, handlers and the router on top of the given stores.
// cache may be nil.
func NewApp(cfg *config.Config, stores Stores, cache *redisinfra.Cache) *App {
	clock := sysClock{}

	// 1) Infrastructure
	var (
		reader      registration.EventReader = stores.Registrations
		invalidator event.CacheInvalidator
		limiter     rest.RateLimiter
	)
	if cache != nil {
		ec := redisinfra.NewEventCache(cache, stores.Registrations, cfg.EventCacheTTL)
		reader, invalidator, limiter = ec, ec, cache
	}

	// 2) Application
	evSvc := event.New(stores.Events, clock, invalidator)
	regSvc := registration.NewService(stores.Registrations, clock,
		registration.WithEventReader(reader),
		registration.WithLocation(cfg.Location()),
		registration.WithPastDateRejection(cfg.RejectPastDates),
	)

	// 3) Transport
	h := rest.NewHandler(evSvc, regSvc, audit.New(logger.Logger))
	httpHandler := rest.NewRouter(rest.RouterDeps{
		Handler:         h,
		Verifier:        security.NewHS256Verifier(cfg.JWTSecret, cfg.JWTIssuer),
		Limiter:         limiter,
		RLEnabled:       cfg.RLEnabled,
		RLLimit:         cfg.RLLimit,
		RLWindow:        cfg.RLWindow,
		RLRegisterLimit: cfg.RLRegisterLimit,
	})

	// 4) Server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{Config: cfg, Server: srv, Cache: cache}
}
