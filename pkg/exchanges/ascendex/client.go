// Package ascendex implements a client for the AscendEX trading API. The
// core is a long-lived WebSocket connection that multiplexes subscription
// channels and correlates request/response pairs over a single socket;
// operations the socket does not offer (balances, order history) go through
// a stateless REST collaborator.
package ascendex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leftys/go-ascendex/pkg/auth"
	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
	"github.com/leftys/go-ascendex/pkg/websocket"
)

// clientState is the façade lifecycle state
type clientState int32

const (
	stateIdle clientState = iota
	stateStarting
	stateReady
	stateReconnecting
	stateClosed
)

// Client is an AscendEX client instance. All state (transport, subscription
// registry, request correlator) is held by the instance: multiple clients
// can coexist in one process, each with its own connection and lifecycle.
type Client struct {
	options *interfaces.ExchangeOptions
	logger  logging.Logger
	signer  *auth.Signer
	groupID string

	transport websocket.Connector
	rest      *RestClient

	registry   *registry
	correlator *correlator

	state atomic.Int32

	// replayMu serializes subscription replay against new Subscribe calls
	// so every pre-Ready subscription is sent exactly once
	replayMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	sweepOnce sync.Once
}

// NewClient creates a client for the given account group and API key pair.
// No network activity happens until Start.
func NewClient(groupID, apiKey, apiSecret string, options *interfaces.ExchangeOptions) (*Client, error) {
	if options == nil {
		options = interfaces.NewExchangeOptions()
	}

	signer, err := auth.NewSigner(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentials, err)
	}

	logger := logging.NewLogger()
	logger.SetLevel(logging.ParseLevel(options.LogLevel))
	logger = logger.WithFields(logging.String("group", groupID))

	c := &Client{
		options:    options,
		logger:     logger,
		signer:     signer,
		groupID:    groupID,
		registry:   newRegistry(),
		correlator: newCorrelator(logger),
		done:       make(chan struct{}),
	}
	c.state.Store(int32(stateIdle))

	c.transport = websocket.NewConnector(websocket.Config{
		URL:               fmt.Sprintf("%s/%s/%s/stream", options.WSBaseURL, groupID, auth.RoutePrefix),
		PingInterval:      options.PingInterval,
		Reconnect:         options.Reconnect,
		ReconnectInterval: options.ReconnectInterval,
		ReconnectMaxWait:  options.ReconnectMaxWait,
		MaxRetries:        options.MaxReconnectAttempts,
		OnMessage:         c.handleMessage,
		OnHandshake:       c.handshake,
		OnStateChange:     c.onTransportState,
		Logger:            logger,
	})

	c.rest = NewRestClient(groupID, signer, options, logger)

	return c, nil
}

func (c *Client) clientState() clientState {
	return clientState(c.state.Load())
}

// Start opens the connection, runs the auth handshake and blocks until the
// client is ready for use. An authentication rejection is terminal: it is
// not retried and requires a fresh Start.
func (c *Client) Start(ctx context.Context) error {
	switch c.clientState() {
	case stateClosed:
		return interfaces.ErrClientClosed
	case stateReady:
		return nil
	}
	c.state.CompareAndSwap(int32(stateIdle), int32(stateStarting))

	if err := c.transport.Connect(ctx); err != nil {
		c.state.CompareAndSwap(int32(stateStarting), int32(stateIdle))
		return fmt.Errorf("start: %w", err)
	}

	c.sweepOnce.Do(func() {
		go c.sweepLoop()
	})

	return nil
}

// Close shuts the client down from any state, releasing the transport and
// failing every still-pending request. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosed))
		close(c.done)
		err = c.transport.Close()
		c.correlator.failAll(interfaces.ErrClientClosed)
	})
	return err
}

// IsReady reports whether the client is connected, authenticated and ready
// for trading commands.
func (c *Client) IsReady() bool {
	return c.clientState() == stateReady
}

// Subscribe registers a subscriber for a channel, optionally scoped to a
// symbol (or account id, depending on the channel). Valid before and after
// Start: subscriptions registered early are sent to the exchange once the
// client becomes ready, in registration order, and are replayed after every
// reconnect since the exchange does not remember them across connections.
func (c *Client) Subscribe(channel, symbol string, sub Subscriber) error {
	if c.clientState() == stateClosed {
		return interfaces.ErrClientClosed
	}

	c.replayMu.Lock()
	defer c.replayMu.Unlock()

	c.registry.register(channel, symbol, sub)

	if c.clientState() == stateReady {
		if err := c.transport.Send(subscribeRequest(channel, symbol, false)); err != nil {
			return fmt.Errorf("subscribe %s:%s: %w", channel, symbol, err)
		}
	}
	return nil
}

// Unsubscribe removes the subscriber for a channel and tells the exchange
// to stop pushing it.
func (c *Client) Unsubscribe(channel, symbol string) error {
	if c.clientState() == stateClosed {
		return interfaces.ErrClientClosed
	}

	c.replayMu.Lock()
	defer c.replayMu.Unlock()

	if !c.registry.unregister(channel, symbol) {
		return interfaces.ErrSubscriptionNotFound
	}

	if c.clientState() == stateReady {
		if err := c.transport.Send(subscribeRequest(channel, symbol, true)); err != nil {
			return fmt.Errorf("unsubscribe %s:%s: %w", channel, symbol, err)
		}
	}
	return nil
}

// PlaceOrder places a new order over the socket and awaits the exchange
// acknowledgement. The returned ack carries the client order id (coid)
// generated for the command; order state changes beyond the ack arrive on
// the "order" channel.
func (c *Client) PlaceOrder(ctx context.Context, order interfaces.OrderRequest) (*interfaces.OrderAck, error) {
	respInst := order.RespInst
	if respInst == "" {
		respInst = "ACK"
	}
	coid := newCoid()

	args := map[string]interface{}{
		"time":       interfaces.UTCTimestamp(),
		"coid":       coid,
		"symbol":     order.Symbol,
		"orderPrice": order.Price.String(),
		"orderQty":   order.Qty.String(),
		"orderType":  order.OrderType,
		"side":       order.Side,
		"postOnly":   order.PostOnly,
		"respInst":   respInst,
	}

	data, err := c.request(ctx, actionPlaceOrder, "cash", args, "")
	if err != nil {
		return nil, err
	}

	ack := &interfaces.OrderAck{Coid: coid, Symbol: order.Symbol}
	if len(data) > 0 {
		if err := json.Unmarshal(data, ack); err != nil {
			c.logger.Warn("unparseable order ack", logging.Error(err))
		}
		if ack.Coid == "" {
			ack.Coid = coid
		}
	}
	return ack, nil
}

// CancelOrder cancels an existing order identified by its coid.
func (c *Client) CancelOrder(ctx context.Context, coid, symbol string) error {
	args := map[string]interface{}{
		"time":     interfaces.UTCTimestamp(),
		"coid":     newCoid(),
		"origCoid": coid,
		"symbol":   symbol,
	}

	_, err := c.request(ctx, actionCancelOrder, "cash", args, "")
	return err
}

// CancelAllOrders cancels every open order, optionally restricted to one
// symbol. The exchange sends no direct reply; cancellations are observed on
// the "order" channel. Unlike the other trading commands this one names the
// account via "ac" and always carries the symbol key.
func (c *Client) CancelAllOrders(symbol string) error {
	if err := c.checkReady(); err != nil {
		return err
	}

	args := map[string]interface{}{
		"time":   interfaces.UTCTimestamp(),
		"symbol": symbol,
	}

	return c.transport.Send(request{Op: opReq, Action: actionCancelAll, Ac: "CASH", Args: args})
}

// OpenOrders returns the currently open orders, optionally restricted to
// one symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	args := map[string]interface{}{}
	if symbol != "" {
		args["symbols"] = symbol
	}
	return c.request(ctx, actionOpenOrders, "cash", args, "")
}

// MarketTrades returns up to n recent trades for a symbol.
func (c *Client) MarketTrades(ctx context.Context, symbol string, n int) (json.RawMessage, error) {
	args := map[string]interface{}{
		"symbol": symbol,
		"level":  n,
	}
	return c.request(ctx, actionMarketTrades, "", args, "")
}

// DepthSnapshot returns the current order book snapshot for a symbol. The
// exchange keys this reply by symbol rather than echoing the request id.
func (c *Client) DepthSnapshot(ctx context.Context, symbol string) (json.RawMessage, error) {
	args := map[string]interface{}{
		"symbol": symbol,
	}
	return c.request(ctx, actionDepthSnapshot, "", args, snapshotKey(actionDepthSnapshot, symbol))
}

// TradeSnapshot asks the exchange to publish a snapshot of recent trades.
// There is no direct reply; the snapshot arrives as ordinary trade pushes on
// the trades channel.
func (c *Client) TradeSnapshot(symbol string) error {
	if err := c.checkReady(); err != nil {
		return err
	}

	args := map[string]interface{}{
		"symbol": symbol,
		"level":  12,
	}
	return c.transport.Send(request{Op: opReq, Action: actionTradeSnapshot, Args: args})
}

// GetBalance returns the cash account balances. Balances are not available
// over the socket, so this proxies to the REST collaborator directly.
func (c *Client) GetBalance(ctx context.Context) ([]interfaces.Balance, error) {
	return c.rest.GetBalance(ctx)
}

// Rest exposes the REST collaborator for operations outside the socket API
// (assets, products, candles, order history).
func (c *Client) Rest() *RestClient {
	return c.rest
}

func (c *Client) checkReady() error {
	switch c.clientState() {
	case stateClosed:
		return interfaces.ErrClientClosed
	case stateReady:
		return nil
	default:
		return interfaces.ErrNotReady
	}
}

// request sends one request-style command and awaits its correlated reply.
// replyKey overrides the key the reply will arrive under; when set, the
// frame goes out without an id because the exchange keys the reply itself.
// Otherwise a correlation id is allocated and echoed back by the exchange.
func (c *Client) request(ctx context.Context, action, account string, args map[string]interface{}, replyKey string) (json.RawMessage, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}

	req := request{Op: opReq, Action: action, Account: account, Args: args}
	key := replyKey
	if key == "" {
		req.ID = c.correlator.nextID()
		key = req.ID
	}

	pending := c.correlator.register(key, time.Now().Add(c.options.RequestTimeout))

	if err := c.transport.Send(req); err != nil {
		c.correlator.cancel(key)
		return nil, err
	}

	return pending.await(ctx, c.correlator)
}

// handshake authenticates a fresh connection. It runs on the transport's
// dial path before the connection is reported ready, so the auth frame is
// always the first command on the wire.
func (c *Client) handshake(send func(message interface{}) error) error {
	ts := interfaces.UTCTimestamp()
	sig, err := c.signer.StreamSignature(ts)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentials, err)
	}

	id := newCoid()[:6]
	pending := c.correlator.register(id, time.Now().Add(c.options.RequestTimeout))

	frame := request{Op: opAuth, ID: id, T: ts, Key: c.signer.Key(), Sig: sig}
	if err := send(frame); err != nil {
		c.correlator.cancel(id)
		return fmt.Errorf("send auth frame: %w", err)
	}

	if _, err := pending.await(context.Background(), c.correlator); err != nil {
		var apiErr *interfaces.APIError
		if errors.As(err, &apiErr) {
			// Explicit rejection by the exchange
			return fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentials, apiErr)
		}
		return fmt.Errorf("auth handshake: %w", err)
	}

	return nil
}

// onTransportState reacts to transport lifecycle transitions: a drop fails
// every in-flight request immediately, and a (re)established connection
// replays all subscriptions before the client is reported ready.
func (c *Client) onTransportState(s websocket.State, err error) {
	switch s {
	case websocket.Disconnected:
		if c.clientState() == stateReady {
			c.state.Store(int32(stateReconnecting))
		}
		c.correlator.failAll(interfaces.ErrConnectionLost)

	case websocket.Ready:
		// Replay and the ready transition happen under one lock so a
		// concurrent Subscribe either lands in the replayed snapshot or
		// observes the ready state and sends itself. Never both, never
		// neither.
		c.replayMu.Lock()
		c.replaySubscriptionsLocked()
		if c.clientState() != stateClosed {
			c.state.Store(int32(stateReady))
		}
		c.replayMu.Unlock()

		if c.clientState() == stateReady {
			c.logger.Info("client ready",
				logging.Int("subscriptions", c.registry.size()),
			)
		}

	case websocket.Closed:
		c.state.Store(int32(stateClosed))
	}
}

// replaySubscriptionsLocked reissues one subscribe command per registered
// entry, in registration order. The caller holds replayMu.
func (c *Client) replaySubscriptionsLocked() {
	for _, s := range c.registry.snapshot() {
		if err := c.transport.Send(subscribeRequest(s.channel, s.symbol, false)); err != nil {
			c.logger.Warn("failed to replay subscription",
				logging.String("channel", s.channel),
				logging.String("symbol", s.symbol),
				logging.Error(err),
			)
		}
	}
}

// handleMessage is the single inbound routing point. It runs on the
// transport's reader goroutine, so nothing here may block: decode errors
// drop the frame, replies resolve pending handles, pushes are dispatched on
// their own goroutines.
func (c *Client) handleMessage(frame []byte) {
	msg, err := decodeMessage(frame)
	if err != nil {
		c.logger.Warn("dropping malformed message", logging.Error(err))
		return
	}

	switch msg.Kind {
	case kindControl:
		c.handleControl(msg)

	case kindReply:
		payload := msg.Data
		if payload == nil {
			payload = json.RawMessage(frame)
		}
		c.correlator.resolve(msg.ID, payload, msg.APIError())
		// Replies carrying a channel symbol (order acks and the like)
		// also feed any matching subscription
		if msg.Symbol != "" {
			c.dispatch(msg)
		}

	case kindPush:
		// Snapshot replies come back without the request id, keyed by
		// (action, symbol) instead
		if msg.Symbol != "" && c.correlator.tryResolve(snapshotKey(msg.Topic, msg.Symbol), msg.Data, msg.APIError()) {
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) handleControl(msg *inboundMessage) {
	switch msg.Topic {
	case "ping":
		// Keep the exchange-side liveness check happy
		if err := c.transport.Send(request{Op: opPong}); err != nil {
			c.logger.Debug("failed to answer ping", logging.Error(err))
		}
	default:
		c.logger.Debug("control message", logging.String("m", msg.Topic))
	}
}

// dispatch hands one push to its registered subscriber without blocking the
// reader loop. A push for an unregistered channel is dropped silently.
func (c *Client) dispatch(msg *inboundMessage) {
	if msg.Symbol == "" || msg.Data == nil {
		c.logger.Debug("dropping unroutable message", logging.String("m", msg.Topic))
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("subscriber panic recovered",
					logging.String("channel", msg.Topic),
					logging.String("panic", fmt.Sprintf("%v", r)),
				)
			}
		}()
		c.registry.dispatch(msg.Topic, msg.Symbol, msg.Data)
	}()
}

// sweepLoop periodically fails pending requests whose deadline has passed.
func (c *Client) sweepLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.correlator.sweep(time.Now())
		case <-c.done:
			return
		}
	}
}

// snapshotKey is the correlation key for replies the exchange tags with a
// symbol instead of the request id.
func snapshotKey(action, symbol string) string {
	return action + ":" + symbol
}

// newCoid generates a 32-character client order id.
func newCoid() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
