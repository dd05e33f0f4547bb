package domain

import "errors"

// Error taxonomy for the classification pipeline. Adapters wrap these
// sentinels with %w so the orchestrator can dispatch on errors.Is.
var (
	// ErrProviderUnavailable covers network, auth and server failures of the
	// embedding provider, including per-call timeouts.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderRateLimited is throttling, kept distinct from unavailability.
	ErrProviderRateLimited = errors.New("embedding provider rate limited")

	// ErrServiceUnavailable covers failures of the category discovery service.
	ErrServiceUnavailable = errors.New("category discovery unavailable")

	// ErrAmbiguousResponse means discovery answered but the proposal was
	// empty or unparseable.
	ErrAmbiguousResponse = errors.New("ambiguous discovery response")

	// ErrDuplicateCategory is returned when adding a category whose
	// normalized name collides with an existing one.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrPersistence marks a failed category store mutation.
	ErrPersistence = errors.New("category persistence failure")
)
