package handler

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
)

// Layouts accepted for expires_at. Zone-less forms come from HTML
// datetime-local inputs and are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExpiry returns nil for an empty value.
func ParseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.Wrapf(domain.ErrInvalidExpiry, "unrecognized timestamp %q", raw)
}
