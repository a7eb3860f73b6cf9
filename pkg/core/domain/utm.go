package domain

import (
	"net/url"
	"strings"
)

// UTMKeys lists the recognized tracking keys in the order they are emitted.
var UTMKeys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// UTMParams maps a recognized UTM key to its value.
type UTMParams map[string]string

// NewUTMParams keeps only recognized keys with non-empty values.
// It returns nil when nothing survives, so an empty set and an absent set are
// the same thing downstream.
func NewUTMParams(raw map[string]string) UTMParams {
	var p UTMParams
	for _, k := range UTMKeys {
		v, ok := raw[k]
		if !ok || v == "" {
			continue
		}
		if p == nil {
			p = make(UTMParams, len(UTMKeys))
		}
		p[k] = v
	}
	return p
}

// Encode renders the parameters as a query fragment in UTMKeys order.
func (p UTMParams) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range UTMKeys {
		v, ok := p[k]
		if !ok || v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}

// Apply appends the parameters to rawURL, joining with '&' when a query is
// already present and '?' otherwise. A fragment stays at the end.
func (p UTMParams) Apply(rawURL string) string {
	q := p.Encode()
	if q == "" {
		return rawURL
	}

	base, fragment := rawURL, ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		base, fragment = rawURL[:i], rawURL[i:]
	}

	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
	case strings.Contains(base, "?"):
		base += "&"
	default:
		base += "?"
	}
	return base + q + fragment
}
