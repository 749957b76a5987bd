package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paynow-terminal-gateway/config"
	httpHandler "paynow-terminal-gateway/internal/adapter/http/handler"
	memStorage "paynow-terminal-gateway/internal/adapter/storage/memory"
	pgStorage "paynow-terminal-gateway/internal/adapter/storage/postgres"
	redisStorage "paynow-terminal-gateway/internal/adapter/storage/redis"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/internal/paynow"
	"paynow-terminal-gateway/internal/service"
	"paynow-terminal-gateway/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting PayNow Terminal Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool (merchant/terminal directory)
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	terminalRepo := pgStorage.NewTerminalRepo(pool)

	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Intent mirror (crash recovery); optional
	var mirror ports.IntentMirror
	if cfg.Payment.Mirror == "redis" {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		mirror = redisStorage.NewIntentMirror(rdb, redisStorage.DefaultMirrorTTL)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Intent mirroring disabled; pending intents will not survive a restart")
	}

	// Authoritative intent store
	intentStore := memStorage.NewIntentStore(mirror, log)
	if mirror != nil {
		warmLoadIntents(ctx, intentStore, terminalRepo, mirror, log)
	}

	// Core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	deviceKeySvc := service.NewArgon2DeviceKeyService()

	// Event distribution
	registry := service.NewTerminalRegistry(cfg.Payment.SubscriberBuf, log)
	dispatcher := service.NewEventDispatcher(
		merchantRepo,
		terminalRepo,
		intentStore,
		registry,
		paynow.NewFallbackRenderer(),
		service.DispatcherOptions{
			Currency:  cfg.Payment.Currency,
			IntentTTL: cfg.Payment.IntentTTL,
			QRSize:    cfg.Payment.QRSize,
		},
		log,
	)

	// Expiry sweeper
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := service.NewExpirySweeper(intentStore, dispatcher, cfg.Payment.SweepInterval, log)
	go sweeper.Run(sweepCtx)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Dispatcher:        dispatcher,
		IntentStore:       intentStore,
		TerminalRepo:      terminalRepo,
		TokenSvc:          tokenSvc,
		DeviceKeySvc:      deviceKeySvc,
		OperatorAccessKey: cfg.Operator.AccessKey,
		HealthCheckers:    healthCheckers,
		Logger:            log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// warmLoadIntents seeds the in-memory store from the mirror so terminals
// keep showing their current intent across a restart. Best-effort: a
// failed lookup only costs that terminal its replayed state.
func warmLoadIntents(ctx context.Context, store ports.IntentStore, terminals ports.TerminalRepository, mirror ports.IntentMirror, log zerolog.Logger) {
	ids, err := terminals.ListIDs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("listing terminals for warm load failed")
		return
	}

	loaded := 0
	for _, id := range ids {
		intent, err := mirror.Current(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("terminal_id", id).Msg("mirror lookup failed during warm load")
			continue
		}
		if intent == nil {
			continue
		}
		if err := store.Seed(ctx, intent); err != nil {
			log.Warn().Err(err).Str("terminal_id", id).Msg("seeding intent failed during warm load")
			continue
		}
		loaded++
	}
	log.Info().Int("terminals", len(ids)).Int("intents", loaded).Msg("intent store warm-loaded from mirror")
}
