package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/app"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/logger"
)

func main() {
	cfg := config.Load()
	l := logger.New(cfg.AppEnv, cfg.LogLevel)

	a, err := app.New(context.Background(), cfg, l)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := a.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to close resources")
	}
	log.Info().Msg("server stopped")
}
