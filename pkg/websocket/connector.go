// Package websocket owns the raw bidirectional message stream of the
// client: dialing, serialized frame writes, one reader goroutine per
// connection, and automatic reconnection with bounded exponential backoff.
// Protocol framing and message routing live above it; the transport hands
// every inbound frame to a single message handler and reports connection
// lifecycle transitions to a state listener.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"

	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
)

// State is the connection lifecycle state. Transitions are monotonic within
// one connect/disconnect cycle: Connecting and Authenticating are never
// skipped on the way to Ready.
type State int32

const (
	Disconnected State = iota
	Connecting
	Authenticating
	Ready
	Closing
	Closed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// MessageHandler is a callback invoked with every raw inbound frame
type MessageHandler func(message []byte)

// Handshake runs on every new connection after the socket is up and before
// the transport reports Ready. The send function writes directly to the new
// connection, bypassing the Ready check. A handshake error aborts the
// connection attempt; only an explicit credential rejection
// (interfaces.ErrInvalidCredentials) stops further attempts, transient
// failures re-enter the backoff loop.
type Handshake func(send func(message interface{}) error) error

// StateListener is notified of lifecycle transitions. err is non-nil only
// for transitions caused by a failure (an unexpected disconnect).
type StateListener func(state State, err error)

// Config holds WebSocket transport configuration
type Config struct {
	URL string

	// PingInterval is the frequency of protocol ping frames. The read
	// deadline is three ping intervals.
	PingInterval time.Duration

	// Reconnect enables automatic reconnection on unexpected closure
	Reconnect bool

	// ReconnectInterval is the base backoff delay between attempts
	ReconnectInterval time.Duration

	// ReconnectMaxWait caps the backoff delay
	ReconnectMaxWait time.Duration

	// MaxRetries bounds attempts per disconnect. Zero means unbounded.
	MaxRetries int

	// OnMessage receives every inbound frame. Required.
	OnMessage MessageHandler

	// OnHandshake, when set, authenticates each new connection
	OnHandshake Handshake

	// OnStateChange, when set, observes lifecycle transitions
	OnStateChange StateListener

	Logger logging.Logger
}

// Connector defines the transport interface consumed by the client façade
type Connector interface {
	// Connect establishes the connection and blocks until Ready or failure
	Connect(ctx context.Context) error

	// Send writes one frame. Fails with ErrNotConnected unless Ready.
	Send(message interface{}) error

	// Close shuts the transport down. Idempotent.
	Close() error

	// State returns the current lifecycle state
	State() State

	// IsConnected reports whether the transport is Ready
	IsConnected() bool
}

var errConnectorClosed = errors.New("websocket connector closed")

// connector implements the Connector interface
type connector struct {
	config Config
	logger logging.Logger

	state atomic.Int32

	mu   sync.Mutex // guards conn and done
	conn *websocket.Conn
	done chan struct{}

	writeMu sync.Mutex

	closed atomic.Bool

	reconnectMu  sync.Mutex
	reconnecting bool
}

// NewConnector creates a new WebSocket transport with the given configuration
func NewConnector(config Config) Connector {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	c := &connector{
		config: config,
		logger: logger,
	}
	c.state.Store(int32(Disconnected))
	return c
}

// State implements Connector interface
func (c *connector) State() State {
	return State(c.state.Load())
}

// IsConnected implements Connector interface
func (c *connector) IsConnected() bool {
	return c.State() == Ready
}

func (c *connector) setState(s State, err error) {
	c.state.Store(int32(s))
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(s, err)
	}
}

// Connect implements Connector interface. Dial and transient handshake
// failures are retried with backoff; a credential rejection aborts
// immediately since it will not succeed on retry.
func (c *connector) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errConnectorClosed
	}
	if c.State() == Ready {
		return nil
	}

	return retry.Do(
		func() error {
			if c.closed.Load() {
				return retry.Unrecoverable(errConnectorClosed)
			}
			err := c.dial(ctx)
			if err != nil && !isRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(attempts(c.config.MaxRetries)),
		retry.Delay(c.config.ReconnectInterval),
		retry.MaxDelay(c.config.ReconnectMaxWait),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("connection attempt failed",
				logging.Int("attempt", int(n+1)),
				logging.Error(err),
			)
		}),
	)
}

// attempts maps the configured retry bound to retry-go attempts,
// treating zero as unbounded.
func attempts(n int) uint {
	if n <= 0 {
		return math.MaxUint32
	}
	return uint(n)
}

// isRetryable reports whether a failed attempt may succeed on retry.
// Everything is transient except an explicit credential rejection by the
// exchange: network errors, handshake timeouts and send failures on a
// freshly dropped socket all re-enter the backoff loop.
func isRetryable(err error) bool {
	return !errors.Is(err, interfaces.ErrInvalidCredentials)
}

// dial performs one connection attempt: socket, handshake, Ready.
func (c *connector) dial(ctx context.Context) error {
	c.setState(Connecting, nil)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		c.setState(Disconnected, err)
		return err
	}

	done := make(chan struct{})
	established := &atomic.Bool{}
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.mu.Unlock()

	c.setState(Authenticating, nil)

	go c.readPump(conn, done, established)
	if c.config.PingInterval > 0 {
		go c.heartbeat(conn, done)
	}

	if c.config.OnHandshake != nil {
		send := func(message interface{}) error {
			return c.write(conn, message)
		}
		if err := c.config.OnHandshake(send); err != nil {
			conn.Close()
			c.setState(Disconnected, err)
			return err
		}
	}

	established.Store(true)
	c.setState(Ready, nil)
	c.logger.Info("websocket connected", logging.String("url", c.config.URL))

	return nil
}

// readPump reads frames until the connection fails or is closed. The
// established flag distinguishes a lost working connection, which triggers
// reconnection, from a connection torn down mid-handshake, which the dial
// path reports itself.
func (c *connector) readPump(conn *websocket.Conn, done chan struct{}, established *atomic.Bool) {
	var readErr error

	defer func() {
		conn.Close()
		close(done)

		if c.closed.Load() || !established.Load() {
			return
		}

		c.setState(Disconnected, readErr)
		c.logger.Warn("websocket connection lost", logging.Error(readErr))

		if c.config.Reconnect {
			go c.reconnect()
		}
	}()

	if c.config.PingInterval > 0 {
		deadline := 3 * c.config.PingInterval
		conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(deadline))
			return nil
		})
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		if c.config.PingInterval > 0 {
			conn.SetReadDeadline(time.Now().Add(3 * c.config.PingInterval))
		}

		c.config.OnMessage(message)
	}
}

// heartbeat sends periodic protocol pings to keep the connection alive
func (c *connector) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// reconnect reestablishes the connection with exponential backoff. Only one
// reconnect loop runs at a time.
func (c *connector) reconnect() {
	c.reconnectMu.Lock()
	if c.reconnecting {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMu.Unlock()

	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	err := retry.Do(
		func() error {
			if c.closed.Load() {
				return retry.Unrecoverable(errConnectorClosed)
			}
			err := c.dial(context.Background())
			if err != nil && !isRetryable(err) {
				// Credential rejection; retrying cannot help
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(attempts(c.config.MaxRetries)),
		retry.Delay(c.config.ReconnectInterval),
		retry.MaxDelay(c.config.ReconnectMaxWait),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("reconnection attempt failed",
				logging.Int("attempt", int(n+1)),
				logging.Error(err),
			)
		}),
	)

	if err != nil {
		c.logger.Error("reconnection failed", logging.Error(err))
		return
	}

	c.logger.Info("reconnection successful")
}

// Send implements Connector interface
func (c *connector) Send(message interface{}) error {
	if c.State() != Ready {
		return interfaces.ErrNotConnected
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return interfaces.ErrNotConnected
	}

	return c.write(conn, message)
}

// write serializes one frame to a specific connection. All socket writes
// funnel through here to preserve exchange-side ordering guarantees.
func (c *connector) write(conn *websocket.Conn, message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if data, ok := message.([]byte); ok {
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close implements Connector interface
func (c *connector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.setState(Closing, nil)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed connection"))
		c.writeMu.Unlock()

		// Give the close frame a moment on the wire before tearing down
		time.Sleep(100 * time.Millisecond)

		err := conn.Close()
		if err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
			c.setState(Closed, nil)
			return err
		}
	}

	c.setState(Closed, nil)
	return nil
}
