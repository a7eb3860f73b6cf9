package domain

import "time"

// Link is a persisted slug -> destination record
type Link struct {
	ID            string     `json:"id"`
	OriginalURL   string     `json:"original_url"`
	Slug          string     `json:"slug"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	UTMParams     UTMParams  `json:"utm_params,omitempty"`
	RedirectCount int64      `json:"redirect_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ActiveAt reports whether the link is resolvable at the given instant.
func (l *Link) ActiveAt(now time.Time) bool {
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// Destination returns the cacheable view of the link.
func (l *Link) Destination() Destination {
	return Destination{
		OriginalURL: l.OriginalURL,
		UTMParams:   l.UTMParams,
		ExpiresAt:   l.ExpiresAt,
	}
}

// Destination is what the redirect cache holds for a slug: the raw URL and
// the UTM set, never the merged result.
type Destination struct {
	OriginalURL string     `json:"original_url"`
	UTMParams   UTMParams  `json:"utm_params,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt is true once the record's expiry has passed.
func (d Destination) ExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}

// URL builds the final redirect target.
func (d Destination) URL() string {
	return d.UTMParams.Apply(d.OriginalURL)
}

// NewLink is a creation request as received from a client
type NewLink struct {
	OriginalURL string
	Slug        string
	ExpiresAt   *time.Time
	UTMParams   map[string]string
}
