package domain

import "errors"

// Domain errors. Handlers map these onto HTTP status codes.
var (
	// ErrEmptyURL is returned when the download URL is missing.
	ErrEmptyURL = errors.New("url must not be empty")

	// ErrPlatformMismatch is returned when the URL does not belong to the
	// requested platform.
	ErrPlatformMismatch = errors.New("url does not match platform")

	// ErrUnsupportedPlatform is returned for unknown platform values.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNoMedia is returned when a provider answered but carried no
	// downloadable media.
	ErrNoMedia = errors.New("no media found")

	// ErrMediaUnavailable is returned when a nominally successful provider
	// payload is missing the requested media (e.g. no audio track).
	ErrMediaUnavailable = errors.New("media unavailable for this item")

	// ErrDownloadFailed is the generic upstream failure after the adapter
	// chain is exhausted.
	ErrDownloadFailed = errors.New("download failed")

	// ErrForbiddenHost is returned by byte proxies when the target host is
	// outside the allowlist.
	ErrForbiddenHost = errors.New("forbidden host")

	// ErrUnauthorized is returned for requests lacking a valid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRecordNotFound is returned when a history record does not exist or
	// belongs to another user.
	ErrRecordNotFound = errors.New("record not found")
)

// ProviderError wraps an upstream failure with the provider's name so chain
// aggregation can report which service failed last.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
