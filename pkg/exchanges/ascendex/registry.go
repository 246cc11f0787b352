package ascendex

import (
	"encoding/json"
	"sync"
)

// Subscriber is the capability required to receive pushed channel messages.
type Subscriber interface {
	// Receive is invoked with the channel name, the symbol (or account id,
	// depending on the channel) and the raw payload of one push.
	Receive(channel, symbol string, data json.RawMessage)
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc func(channel, symbol string, data json.RawMessage)

// Receive implements Subscriber
func (f SubscriberFunc) Receive(channel, symbol string, data json.RawMessage) {
	f(channel, symbol, data)
}

type subKey struct {
	channel string
	symbol  string
}

type subscription struct {
	channel string
	symbol  string
	sub     Subscriber
}

// registry maps (channel, symbol) pairs to their registered subscriber and
// remembers registration order so subscriptions can be replayed in order
// after a reconnect. At most one subscriber is active per pair; registering
// again overwrites.
type registry struct {
	mu    sync.RWMutex
	subs  map[subKey]*subscription
	order []subKey
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[subKey]*subscription),
	}
}

// register stores or overwrites the subscriber for a pair. An overwritten
// pair keeps its original position in the replay order.
func (r *registry) register(channel, symbol string, sub Subscriber) {
	key := subKey{channel: channel, symbol: symbol}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[key]; !exists {
		r.order = append(r.order, key)
	}
	r.subs[key] = &subscription{channel: channel, symbol: symbol, sub: sub}
}

// unregister removes the subscriber for a pair. Reports whether a
// subscription existed.
func (r *registry) unregister(channel, symbol string) bool {
	key := subKey{channel: channel, symbol: symbol}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[key]; !exists {
		return false
	}

	delete(r.subs, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// dispatch invokes the subscriber registered for (channel, symbol), falling
// back to a catch-all (channel, "") subscription. An unknown channel is not
// an error: the server may push channels that were never mapped, and those
// messages are dropped silently. Reports whether a subscriber was invoked.
func (r *registry) dispatch(channel, symbol string, data json.RawMessage) bool {
	r.mu.RLock()
	s, ok := r.subs[subKey{channel: channel, symbol: symbol}]
	if !ok {
		s, ok = r.subs[subKey{channel: channel}]
	}
	r.mu.RUnlock()

	if !ok {
		return false
	}

	s.sub.Receive(channel, symbol, data)
	return true
}

// snapshot returns all current subscriptions in registration order, for
// replay after a reconnect.
func (r *registry) snapshot() []subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]subscription, 0, len(r.order))
	for _, key := range r.order {
		if s, ok := r.subs[key]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// size returns the number of active subscriptions.
func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
