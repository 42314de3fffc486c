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

	"cajaescolar/internal/cache"
	"cajaescolar/internal/caja"
	"cajaescolar/internal/config"
	"cajaescolar/internal/infra"
	"cajaescolar/internal/middleware"
	"cajaescolar/internal/repository"
	"cajaescolar/internal/router"
	"cajaescolar/internal/service"
	"cajaescolar/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dev: pretty console, prod: JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	tolerancia, err := decimal.NewFromString(cfg.ToleranciaCierre)
	if err != nil || tolerancia.IsNegative() {
		log.Warn().Str("value", cfg.ToleranciaCierre).Msg("invalid TOLERANCIA_CIERRE, using 0.01")
		tolerancia = caja.ToleranciaPredeterminada
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	plantelRepo := repository.NewPlantelRepository(db)

	// ── Infrastructure ───────────────────────────────────────────────────────
	configCache := cache.NewConfiguracionCache(
		cache.NewRedisStore(rdb),
		plantelRepo,
		time.Duration(cfg.ConfigCacheTTLMinutes)*time.Minute,
		tolerancia,
	)
	mailer := infra.NewMailer(cfg)
	smtpCB := infra.NewCircuitBreaker(infra.SMTPBreakerConfig())
	dispatcher := worker.NewDispatcher(rdb)

	// ── Worker pool ──────────────────────────────────────────────────────────
	pool := worker.NewPool(rdb, map[string]worker.Processor{
		worker.JobCierre: worker.NewCierreWorker(cajaRepo, plantelRepo, mailer, smtpCB, cfg.PDFStoragePath),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)

	// ── Services + HTTP ──────────────────────────────────────────────────────
	r := router.New(cfg, router.Deps{
		DB:            db,
		Redis:         rdb,
		SMTPCB:        smtpCB,
		Auth:          service.NewAuthService(usuarioRepo, cfg),
		Cajas:         service.NewCajaService(cajaRepo, configCache, dispatcher),
		Configuracion: service.NewConfiguracionService(plantelRepo, configCache),
		ConfigCache:   configCache,
		APILimiter:    middleware.NewRedisLimitador(rdb, 1000, time.Minute),
		LoginLimiter:  middleware.NewRedisLimitador(rdb, 20, time.Minute),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("cajaescolar listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	pool.Wait()
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
