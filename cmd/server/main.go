package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vouch/internal/bootstrap"
	"vouch/internal/content"
	"vouch/internal/notify"
	"vouch/internal/platform/config"
	"vouch/internal/platform/database"
	"vouch/internal/platform/health"
	"vouch/internal/platform/logger"
	"vouch/internal/platform/metrics"
	"vouch/internal/platform/middleware"
	"vouch/internal/platform/token"
	"vouch/internal/verification/handler"
	"vouch/internal/verification/service"
	"vouch/internal/verification/store"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	log.Info("initializing vouch",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	healthHandler := health.New(cfg.Environment)

	var verificationStore store.Store = store.NewInMemory()
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := bootstrap.Migrate(ctx, db, log); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		verificationStore = store.NewPostgres(db)
		healthHandler.RegisterCheck("database", func() error { return db.Ping() })
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	var logChannel notify.LogChannel = notify.NewSlogLogChannel(log, cfg.LogChannel)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaChannel, err := notify.NewKafkaLogChannel(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka log channel failed", "error", err)
			os.Exit(1)
		}
		defer kafkaChannel.Close()
		logChannel = kafkaChannel
		healthHandler.RegisterCheck("kafka", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaChannel.Healthy(checkCtx) {
				return errors.New("brokers unreachable")
			}
			return nil
		})
	}

	var postRegistry notify.Registry = notify.NewMemoryRegistry()
	if cfg.RedisAddr != "" {
		redisRegistry, err := notify.NewRedisRegistry(cfg.RedisAddr)
		if err != nil {
			log.Error("redis registry failed", "error", err)
			os.Exit(1)
		}
		defer redisRegistry.Close()
		postRegistry = redisRegistry
		healthHandler.RegisterCheck("redis", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisRegistry.Health(checkCtx)
		})
	}

	board := notify.NewSlogReviewBoard(log)
	if err := bootstrap.EnsureIntakeControl(ctx, board, log); err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	contentStore, err := content.NewStore(cfg.ContentRoot,
		content.WithLogger(log),
		content.WithMetrics(m),
	)
	if err != nil {
		log.Error("content store failed", "error", err)
		os.Exit(1)
	}

	svc := service.New(service.Deps{
		Store:        verificationStore,
		Granter:      notify.NewSlogRoleGranter(log),
		LogChannel:   logChannel,
		Messenger:    notify.NewSlogMessenger(log),
		Board:        board,
		Registry:     postRegistry,
		ReviewerRole: cfg.ReviewerRole,
		MemberRole:   cfg.MemberRole,
	},
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	tokenService := token.NewService(cfg.JWTSigningKey, cfg.TokenTTL)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m))

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokenService))
		handler.New(svc).Register(r)
		content.NewHandler(contentStore).Register(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
