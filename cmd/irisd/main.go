package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"iris-predictor/internal/artifacts"
	"iris-predictor/internal/cfg"
	"iris-predictor/internal/metrics"
	"iris-predictor/internal/server"
)

func main() {
	_ = godotenv.Load()
	setupLogging(os.Getenv("LOG_LEVEL"))

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	m := metrics.New()

	// Artifacts are resolved exactly once. A failure here puts the
	// server in a permanent degraded state instead of exiting, so the
	// health endpoint can report the cause.
	bundle, loadErr := artifacts.Load(c.ArtifactSource())
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("artifact load failed, serving degraded")
	} else if !bundle.ModelMTime.IsZero() {
		m.ModelAge.Set(time.Since(bundle.ModelMTime).Seconds())
	}

	srv := server.New(c, bundle, loadErr, m)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(srv)
}

func setupLogging(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func waitForShutdown(srv *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}
