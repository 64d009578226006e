package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mossy-p/call-signaling/config"
	"github.com/mossy-p/call-signaling/internal/handlers"
	"github.com/mossy-p/call-signaling/internal/redis"
	"github.com/mossy-p/call-signaling/internal/signaling"
)

const shutdownTimeout = 10 * time.Second

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	g, gctx := errgroup.WithContext(ctx)

	hubCfg := signaling.Config{
		OfferTTL:      cfg.OfferTTL,
		SweepInterval: cfg.SweepInterval,
	}

	// Redis is an optional presence mirror, never a source of truth
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer client.Close()
		log.Info().Str("host", cfg.Redis.Host).Msg("Redis connection established")

		mirror := redis.NewPresenceMirror(client, 0)
		hubCfg.Presence = mirror
		g.Go(func() error { return mirror.Run(gctx) })
	}

	hub := signaling.New(hubCfg)
	g.Go(func() error { return hub.Run(gctx) })

	router := handlers.SetupRouter(hub, handlers.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		RequireAuth:    cfg.RequireAuth,
		Started:        time.Now(),
		WS: handlers.WSOptions{
			PingPeriod:   cfg.PingPeriod,
			PongWait:     cfg.PongWait,
			WriteWait:    cfg.WriteWait,
			ReadLimit:    cfg.ReadLimit,
			SendBuffer:   cfg.SendBuffer,
			MessageRate:  cfg.MessageRate,
			MessageBurst: cfg.MessageBurst,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).
			Strs("origins", cfg.AllowedOrigins).Bool("require_auth", cfg.RequireAuth).
			Msg("call signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server exited gracefully")
}
