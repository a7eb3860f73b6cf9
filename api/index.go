package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/app"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	l := logger.New(cfg.AppEnv, cfg.LogLevel)

	// Note: On Vercel, a local sqlite file is ephemeral; point DATABASE_URL at Turso or Postgres
	a, err := app.New(context.Background(), cfg, l)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
