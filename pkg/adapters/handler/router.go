package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, log zerolog.Logger, gatherer prometheus.Gatherer) http.Handler {
	h := NewHTTPHandler(service)
	mw := NewMiddleware(log, cfg.CORSAllowedOrigin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("POST /shorten", h.Create)
	mux.HandleFunc("GET /api/v1/links/{slug}", h.GetLink)
	mux.HandleFunc("GET /{slug}", h.Redirect)

	return mw.Wrap(mux)
}
