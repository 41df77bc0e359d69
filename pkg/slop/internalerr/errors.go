package internalerr

import "errors"

// Sentinel errors for common cases
var (
	// ErrEmptyInput is returned when no sentences, tokens or fingerprints are
	// supplied where at least one is required.
	ErrEmptyInput = errors.New("empty input")

	// ErrMalformedFingerprint is returned when a fingerprint is missing
	// required fields or carries inconsistent ranked lists.
	ErrMalformedFingerprint = errors.New("malformed fingerprint")

	// ErrInsufficientSources is returned when a tree is requested with fewer
	// than two eligible sources.
	ErrInsufficientSources = errors.New("insufficient sources")

	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrInvalidConfig = errors.New("invalid configuration")
)
