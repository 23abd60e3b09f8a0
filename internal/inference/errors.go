package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials means neither a bearer token nor a cookie is
	// configured. No network call is attempted.
	ErrMissingCredentials = errors.New("inference: no bearer token or cookie configured")

	// ErrEmptyResponse means the service answered 2xx but no usable text
	// survived response normalization.
	ErrEmptyResponse = errors.New("inference: empty response")
)

// credentialsRejectedMsg is the stable message substituted for the upstream
// "No cookie auth credentials found" rejection.
const credentialsRejectedMsg = "inference service rejected the configured credentials"

// UpstreamError is a non-2xx answer from the inference service with the
// upstream message normalized.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("inference upstream: %s (status=%d)", e.Message, e.Status)
}
