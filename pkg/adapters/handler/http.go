package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	service ports.LinkService
}

func NewHTTPHandler(service ports.LinkService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	OriginalURL string            `json:"original_url"`
	Slug        string            `json:"slug,omitempty"`
	ExpiresAt   string            `json:"expires_at,omitempty"`
	UTMParams   map[string]string `json:"utm_params,omitempty"`
}

type CreateLinkResponse struct {
	ShortURL string `json:"short_url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Create handles POST /shorten
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	expiresAt, err := ParseExpiry(req.ExpiresAt)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "Invalid expires_at"})
		return
	}

	shortURL, err := h.service.CreateLink(r.Context(), domain.NewLink{
		OriginalURL: req.OriginalURL,
		Slug:        req.Slug,
		ExpiresAt:   expiresAt,
		UTMParams:   req.UTMParams,
	})
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusCreated, CreateLinkResponse{ShortURL: shortURL})
	case errors.Is(err, domain.ErrInvalidURL):
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "Invalid URL"})
	case errors.Is(err, domain.ErrInvalidSlug):
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "Invalid slug"})
	case errors.Is(err, domain.ErrSlugTaken):
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "Slug already taken"})
	default:
		hlog.FromRequest(r).Error().Stack().Err(err).Msg("create link failed")
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: "Failed to shorten URL"})
	}
}

// Redirect handles GET /{slug}
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	dest, err := h.service.ResolveSlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFoundOrExpired) {
			http.Error(w, "Not found or expired", http.StatusNotFound)
			return
		}
		hlog.FromRequest(r).Error().Stack().Err(err).Str("slug", slug).Msg("resolve slug failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, dest, http.StatusFound)
}

// GetLink returns the stored record for a slug, expired or not.
func (h *HTTPHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetLink(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFoundOrExpired) {
			writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: "Not found"})
			return
		}
		hlog.FromRequest(r).Error().Stack().Err(err).Msg("get link failed")
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}
	writeJSON(w, r, http.StatusOK, link)
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Stack().Err(err).Msg("failed to encode response")
	}
}
