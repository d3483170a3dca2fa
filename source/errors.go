package source

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen is returned when the fetch breaker rejects a request.
var ErrCircuitOpen = errors.New("provenance source unavailable: circuit open")

// ErrDocumentTooLarge is returned when the document exceeds the size limit.
// A truncated document is never handed to a pass.
var ErrDocumentTooLarge = errors.New("provenance document exceeds size limit")

// Failure reasons reported by Reason.
const (
	ReasonCircuitOpen = "circuit_open"
	ReasonStatus      = "status"
	ReasonTransport   = "transport"
	ReasonRead        = "read"
	ReasonTooLarge    = "too_large"
)

// FetchError describes a failed retrieval of the provenance document.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *FetchError) Retryable() bool {
	if errors.Is(e.Err, ErrDocumentTooLarge) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Reason classifies err for metrics labels.
func Reason(err error) string {
	if errors.Is(err, ErrCircuitOpen) {
		return ReasonCircuitOpen
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.StatusCode != 0 {
			return ReasonStatus
		}
		if errors.Is(fe.Err, ErrDocumentTooLarge) {
			return ReasonTooLarge
		}
		return ReasonTransport
	}
	return ReasonRead
}
