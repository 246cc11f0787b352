package ascendex

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
)

// pendingRequest is a single-resolution result slot for one in-flight
// request. It is fulfilled exactly once, with a payload or a failure.
type pendingRequest struct {
	key      string
	deadline time.Time

	done    chan struct{}
	payload json.RawMessage
	err     error
}

// correlator tracks in-flight request ids and resolves their pending
// handles when matching replies arrive. Ids are allocated from an atomic
// counter so no two concurrently outstanding requests ever share one.
type correlator struct {
	logger logging.Logger

	seq atomic.Uint64

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

func newCorrelator(logger logging.Logger) *correlator {
	return &correlator{
		logger:  logger,
		pending: make(map[string]*pendingRequest),
	}
}

// nextID allocates a fresh correlation id, unique for the client's lifetime.
func (c *correlator) nextID() string {
	return strconv.FormatUint(c.seq.Add(1), 10)
}

// register creates a pending handle for the given key with a deadline.
func (c *correlator) register(key string, deadline time.Time) *pendingRequest {
	p := &pendingRequest{
		key:      key,
		deadline: deadline,
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.pending[key] = p
	c.mu.Unlock()

	return p
}

// resolve fulfills the handle registered under key. A reply for a key that
// was already resolved (or never registered) is a defensive no-op: it is
// logged and must not corrupt the already-delivered result.
func (c *correlator) resolve(key string, payload json.RawMessage, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("discarding late or duplicate reply",
			logging.String("id", key),
			logging.Error(interfaces.ErrDuplicateResolution),
		)
		return false
	}

	p.payload = payload
	p.err = err
	close(p.done)
	return true
}

// tryResolve is resolve without the duplicate warning, for reply paths
// where most inbound frames legitimately match no pending request.
func (c *correlator) tryResolve(key string, payload json.RawMessage, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	p.payload = payload
	p.err = err
	close(p.done)
	return true
}

// cancel removes a handle without resolving it. Used when the awaiting
// caller gives up, so the slot is not leaked.
func (c *correlator) cancel(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// failAll resolves every outstanding handle with the given reason. Invoked
// on disconnect so no caller is left waiting across a reconnect cycle.
func (c *correlator) failAll(reason error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.err = reason
		close(p.done)
	}
}

// sweep fails every handle whose deadline has passed with ErrRequestTimeout.
func (c *correlator) sweep(now time.Time) {
	var expired []*pendingRequest

	c.mu.Lock()
	for key, p := range c.pending {
		if now.After(p.deadline) {
			delete(c.pending, key)
			expired = append(expired, p)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		p.err = interfaces.ErrRequestTimeout
		close(p.done)
	}
}

// outstanding returns the number of in-flight requests.
func (c *correlator) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// await blocks until the handle resolves, the caller's context is
// cancelled, or the deadline passes. Cancellation removes the handle; the
// command already sent is not retracted and may still execute server-side.
func (p *pendingRequest) await(ctx context.Context, c *correlator) (json.RawMessage, error) {
	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()

	select {
	case <-p.done:
		return p.payload, p.err
	case <-ctx.Done():
		c.cancel(p.key)
		return nil, ctx.Err()
	case <-timer.C:
		// Resolve the timeout ourselves; if a reply won the race the
		// handle is already resolved and tryResolve is a no-op.
		c.tryResolve(p.key, nil, interfaces.ErrRequestTimeout)
		<-p.done
		return p.payload, p.err
	}
}
