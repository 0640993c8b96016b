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
	"github.com/rs/zerolog/log"

	"hammer-relay/internal/api"
	"hammer-relay/internal/checker"
	"hammer-relay/internal/config"
	"hammer-relay/internal/monitor"
	"hammer-relay/internal/relay"
	"hammer-relay/internal/storage"
)

func main() {
	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatal().Err(err).Msg("invalid environment override")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitor.NewMetrics()

	rl := relay.New(checker.New(cfg.Checker), relay.NewFailureSet(), metrics, monitor.NewTracer())
	primer := relay.NewPrimer(cfg.Static.AboutFile)
	if _, err := os.Stat(primer.Path()); err != nil {
		log.Warn().Err(err).Str("path", primer.Path()).Msg("primer file not readable, /learnhammer/ will fail")
	}

	// Initialize database (optional, runs without it for development)
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit logging disabled")
		} else {
			defer db.Close()
		}
	}

	var auditWriter *storage.AuditWriter
	if db != nil {
		auditWriter = storage.NewAuditWriter(db, cfg.Database.AuditBuffer)
		auditWriter.OnDrop(metrics.AuditDropped.Inc)
		auditWriter.Start()
		defer auditWriter.Flush(10 * time.Second)
	}

	server := api.NewServer(cfg, rl, primer, db, auditWriter, metrics)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", cfg.Address()).
		Str("checker_url", cfg.Checker.URL).
		Bool("db_enabled", db != nil).
		Msg("server starting")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
