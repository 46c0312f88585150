package domain

import "errors"

var (
	// ErrConfiguration is returned when no usable session or cookie source exists.
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition marks malformed calling arguments. Never retried.
	ErrPrecondition = errors.New("precondition violation")

	// ErrDecode is returned when a response body is not valid JSON.
	ErrDecode = errors.New("decode failure")

	// ErrQuotaExceeded is returned while requests are paused after a 429.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrMissingIDs is returned by product lookups without any id set.
	ErrMissingIDs = errors.New("at least one of listingIds, productIds or articleIds must be set")
)
