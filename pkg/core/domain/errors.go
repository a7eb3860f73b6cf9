package domain

import "errors"

// Errors surfaced by the link registry
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidSlug       = errors.New("invalid slug")
	ErrInvalidExpiry     = errors.New("invalid expiration timestamp")
	ErrSlugTaken         = errors.New("slug already taken")
	ErrNotFoundOrExpired = errors.New("not found or expired")
	ErrStoreUnavailable  = errors.New("link store unavailable")
)

// ErrDuplicateSlug is returned by a store when the unique constraint on slug
// rejects an insert.
var ErrDuplicateSlug = errors.New("duplicate slug")
