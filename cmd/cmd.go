package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickmate-backend/internal/config"
	"pickmate-backend/internal/events"
	"pickmate-backend/internal/handlers"
	"pickmate-backend/internal/identity"
	"pickmate-backend/internal/notify"
	"pickmate-backend/internal/repository"
	"pickmate-backend/internal/repository/memory"
	"pickmate-backend/internal/router"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	path := os.Getenv("PICKMATE_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)

	ctx := context.Background()
	checks := make(map[string]handlers.HealthCheck)

	// Storage
	var stores services.Stores
	switch cfg.Database.Driver {
	case "memory":
		db := memory.New()
		stores = services.Stores{
			Users:     db.Users(),
			Couples:   db.Couples(),
			Decisions: db.Decisions(),
			Options:   db.Options(),
			Ratings:   db.Ratings(),
		}
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
	default:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		log.Info().Msg("Database connection established")

		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, db); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply schema")
			}
		}

		stores = services.Stores{
			Users:     repository.NewUserRepository(db),
			Couples:   repository.NewCoupleRepository(db),
			Decisions: repository.NewDecisionRepository(db),
			Options:   repository.NewOptionRepository(db),
			Ratings:   repository.NewRatingRepository(db),
		}
		checks["database"] = db.Ping
	}

	// Live notifications
	var bus events.Bus
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to ping redis")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")

		bus = events.NewRedisBus(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		bus = events.NewLocalBus()
	}

	push, err := notify.New(cfg.APNs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push notifier")
	}

	var images services.ImageStore
	if cfg.AWS.S3Bucket != "" {
		s3Store, err := storage.NewS3(ctx, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		images = s3Store
	} else {
		log.Info().Msg("No S3 bucket configured, image uploads disabled")
	}

	// Initialize services
	userService := services.NewUserService(stores.Users, cfg.JWT.Secret)
	pairingService := services.NewPairingService(stores.Couples, stores.Users, bus, push)
	decisionService := services.NewDecisionService(stores, bus, push)
	wsHub := services.NewWSHub(bus, pairingService)

	handler := router.New(router.Deps{
		Users:          userService,
		Pairing:        pairingService,
		Decisions:      decisionService,
		Ratings:        services.NewRatingService(stores, bus),
		Results:        services.NewResultsService(stores, bus),
		Images:         services.NewImageService(decisionService, images),
		Hub:            wsHub,
		Resolver:       identity.NewResolver(userService, cfg.Voting),
		HealthChecks:   checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("database", cfg.Database.Driver).
			Bool("redis", cfg.Redis.Addr != "").
			Bool("push", cfg.APNs.Enabled()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
