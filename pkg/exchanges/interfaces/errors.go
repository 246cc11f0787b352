package interfaces

import (
	"errors"
	"fmt"
)

// Common error variables returned by the client
var (
	// ErrNotConnected is returned when a frame is sent on a transport that
	// hasn't been connected yet or has lost its connection
	ErrNotConnected = errors.New("websocket transport not connected")

	// ErrNotReady is returned when a trading operation is invoked before the
	// client has finished its start sequence (connect + authenticate)
	ErrNotReady = errors.New("client not ready")

	// ErrConnectionLost is the resolution of every request that was still
	// in flight when the transport dropped
	ErrConnectionLost = errors.New("connection lost")

	// ErrRequestTimeout is returned when no reply arrives within the
	// per-request deadline
	ErrRequestTimeout = errors.New("request timed out")

	// ErrInvalidCredentials is returned when the exchange rejects the
	// authentication handshake. It is terminal for Start and never retried.
	ErrInvalidCredentials = errors.New("invalid API credentials")

	// ErrClientClosed is returned for operations on a closed client and is
	// the resolution of requests still pending at Close
	ErrClientClosed = errors.New("client closed")

	// ErrMalformedMessage marks an inbound frame that could not be parsed.
	// The frame is logged and dropped, the reader loop keeps running.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrDuplicateResolution marks a reply for a request that was already
	// resolved. Logged, never propagated to callers.
	ErrDuplicateResolution = errors.New("duplicate request resolution")

	// ErrSubscriptionNotFound is returned when unsubscribing from a channel
	// that has no registered subscriber
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// APIError represents an explicit rejection from the exchange, carrying the
// exchange-assigned error code and reason verbatim.
type APIError struct {
	Code    int
	Reason  string
	Message string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ascendex api error %d (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("ascendex api error %d: %s", e.Code, e.Message)
}

// NewAPIError creates an error for an exchange-side rejection
func NewAPIError(code int, reason, message string) error {
	return &APIError{Code: code, Reason: reason, Message: message}
}
