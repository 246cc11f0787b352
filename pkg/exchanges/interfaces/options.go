package interfaces

import (
	"time"
)

// ExchangeOptions defines configuration options for the AscendEX client.
// Credentials are not part of the options: they are supplied once at client
// construction and never mutated afterwards.
type ExchangeOptions struct {
	// RESTBaseURL is the base URL for the REST API.
	// Defaults to the production AscendEX endpoint.
	RESTBaseURL string

	// WSBaseURL is the base URL for the WebSocket stream.
	// The account group and route prefix are appended by the client.
	WSBaseURL string

	// RequestTimeout bounds how long a request-style command (order
	// placement, snapshots, open orders) waits for its correlated reply.
	RequestTimeout time.Duration

	// HTTPTimeout specifies the maximum duration of REST API calls.
	HTTPTimeout time.Duration

	// MaxRequestsPerSecond controls rate limiting for REST requests.
	MaxRequestsPerSecond int

	// Reconnect enables automatic reconnection when the WebSocket
	// connection drops unexpectedly.
	Reconnect bool

	// ReconnectInterval is the base delay between reconnection attempts.
	// The actual delay grows with exponential backoff up to ReconnectMaxWait.
	ReconnectInterval time.Duration

	// ReconnectMaxWait caps the backoff delay between reconnection attempts.
	ReconnectMaxWait time.Duration

	// MaxReconnectAttempts limits reconnection attempts per disconnect.
	// Zero means unbounded.
	MaxReconnectAttempts int

	// PingInterval is the frequency of protocol-level ping frames used to
	// keep the WebSocket connection alive.
	PingInterval time.Duration

	// LogLevel controls the verbosity of client logging.
	// Common values include: "debug", "info", "warn", "error"
	LogLevel string
}

// NewExchangeOptions returns default options with conservative values.
//
// Default values:
// - Request timeout: 5 seconds
// - HTTP timeout: 30 seconds
// - Max requests per second: 10
// - Reconnect: enabled, 500ms base delay, 60s cap, unbounded attempts
// - Ping interval: 15 seconds
//
// Example usage:
//
//	options := interfaces.NewExchangeOptions()
//	options.RequestTimeout = 2 * time.Second
//	client := ascendex.NewClient("6", "your-api-key", "your-api-secret", options)
func NewExchangeOptions() *ExchangeOptions {
	return &ExchangeOptions{
		RESTBaseURL:          "https://ascendex.com",
		WSBaseURL:            "wss://ascendex.com",
		RequestTimeout:       5 * time.Second,
		HTTPTimeout:          30 * time.Second,
		MaxRequestsPerSecond: 10,
		Reconnect:            true,
		ReconnectInterval:    500 * time.Millisecond,
		ReconnectMaxWait:     60 * time.Second,
		PingInterval:         15 * time.Second,
		LogLevel:             "info",
	}
}
