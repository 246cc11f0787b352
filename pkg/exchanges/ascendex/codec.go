package ascendex

import (
	"encoding/json"
	"fmt"

	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
)

// Subscription channels pushed by the exchange
const (
	ChannelOrder   = "order"
	ChannelTrades  = "trades"
	ChannelRefPx   = "ref-px"
	ChannelBar     = "bar"
	ChannelSummary = "summary"
	ChannelDepth   = "depth"
	ChannelBBO     = "bbo"
)

// Channels returns all supported subscription channels.
func Channels() []string {
	return []string{
		ChannelOrder, ChannelTrades, ChannelRefPx, ChannelBar,
		ChannelSummary, ChannelDepth, ChannelBBO,
	}
}

// Outbound operation names
const (
	opSub   = "sub"
	opUnsub = "unsub"
	opReq   = "req"
	opAuth  = "auth"
	opPong  = "pong"
)

// Request actions
const (
	actionPlaceOrder    = "place-Order"
	actionCancelOrder   = "cancel-Order"
	actionCancelAll     = "cancel-All"
	actionOpenOrders    = "open-order"
	actionMarketTrades  = "market-trades"
	actionDepthSnapshot = "depth-snapshot"
	actionTradeSnapshot = "trade-snapshot"
)

// request is the outbound command envelope. Field names are the exchange's
// wire contract and must not change.
type request struct {
	Op      string                 `json:"op"`
	ID      string                 `json:"id,omitempty"`
	Ch      string                 `json:"ch,omitempty"`
	Action  string                 `json:"action,omitempty"`
	Account string                 `json:"account,omitempty"`
	Ac      string                 `json:"ac,omitempty"`
	T       int64                  `json:"t,omitempty"`
	Key     string                 `json:"key,omitempty"`
	Sig     string                 `json:"sig,omitempty"`
	Args    map[string]interface{} `json:"args,omitempty"`
}

// subscribeRequest builds a sub/unsub frame. Symbol-scoped channels use the
// "<channel>:<symbol>" form.
func subscribeRequest(channel, symbol string, unsubscribe bool) request {
	op := opSub
	if unsubscribe {
		op = opUnsub
	}
	ch := channel
	if symbol != "" {
		ch = channel + ":" + symbol
	}
	return request{Op: op, Ch: ch}
}

// messageKind tags a decoded inbound frame
type messageKind int

const (
	// kindControl covers ping, pong and connection banners
	kindControl messageKind = iota

	// kindReply carries a correlation id and resolves a pending request
	kindReply

	// kindPush is an unsolicited channel message
	kindPush
)

// inboundMessage is the decoded form of one inbound frame.
type inboundMessage struct {
	Kind   messageKind
	Topic  string
	ID     string
	Symbol string
	Data   json.RawMessage

	// Error info supplied by the exchange on rejections
	Code   int
	Reason string
	Err    string
}

// APIError converts exchange-supplied error info into an error, or nil when
// the frame carries no rejection.
func (m *inboundMessage) APIError() error {
	if m.Code == 0 && m.Err == "" && m.Reason == "" {
		return nil
	}
	msg := m.Err
	if msg == "" {
		msg = m.Topic
	}
	return interfaces.NewAPIError(m.Code, m.Reason, msg)
}

// decodeMessage parses one inbound frame. The topic comes from "m" (or the
// legacy "message" field), the symbol from "symbol", "s" or "accountId"
// depending on the channel, and the payload from "data" or "info". Bar and
// summary frames carry their payload at the top level, so the raw frame is
// kept as the payload there.
func decodeMessage(frame []byte) (*inboundMessage, error) {
	var env struct {
		M         string          `json:"m"`
		Message   string          `json:"message"`
		ID        string          `json:"id"`
		Symbol    string          `json:"symbol"`
		S         string          `json:"s"`
		AccountID string          `json:"accountId"`
		Data      json.RawMessage `json:"data"`
		Info      json.RawMessage `json:"info"`
		Code      int             `json:"code"`
		Reason    string          `json:"reason"`
		Err       string          `json:"err"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	topic := env.M
	if topic == "" {
		topic = env.Message
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: missing topic", interfaces.ErrMalformedMessage)
	}

	msg := &inboundMessage{
		Topic:  topic,
		ID:     env.ID,
		Code:   env.Code,
		Reason: env.Reason,
		Err:    env.Err,
	}

	switch {
	case env.Symbol != "":
		msg.Symbol = env.Symbol
	case env.S != "":
		msg.Symbol = env.S
	case env.AccountID != "":
		msg.Symbol = env.AccountID
	}

	switch {
	case env.Data != nil:
		msg.Data = env.Data
	case env.Info != nil:
		msg.Data = env.Info
	case topic == ChannelBar || topic == ChannelSummary:
		msg.Data = json.RawMessage(frame)
	}

	switch {
	case topic == "ping" || topic == "pong" || topic == "connected" || topic == "disconnected":
		msg.Kind = kindControl
	case msg.ID != "":
		msg.Kind = kindReply
	default:
		msg.Kind = kindPush
	}

	return msg, nil
}
