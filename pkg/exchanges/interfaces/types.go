package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order sides accepted by the exchange
const (
	Buy  = "buy"
	Sell = "sell"
)

// Order types accepted by the exchange
const (
	Limit  = "limit"
	Market = "market"
)

// OrderRequest describes a new order to be placed.
type OrderRequest struct {
	// Symbol is the trading pair in exchange format (e.g., "BTC/USDT")
	Symbol string

	// Price is the limit price. Ignored for market orders.
	Price decimal.Decimal

	// Qty is the order size in base asset units
	Qty decimal.Decimal

	// OrderType is "limit" or "market"
	OrderType string

	// Side is "buy" or "sell"
	Side string

	// PostOnly rejects the order if it would take liquidity
	PostOnly bool

	// RespInst selects when the exchange acknowledges the order:
	// "ACK", "ACCEPT", or "DONE". Defaults to "ACK".
	RespInst string
}

// OrderAck is the exchange acknowledgement of an order command.
type OrderAck struct {
	// Coid is the client-generated order id assigned when the command
	// was sent. The exchange echoes it back in order updates.
	Coid string `json:"coid"`

	// OrderID is the exchange-assigned order id, when available
	OrderID string `json:"orderId"`

	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

// Balance holds the free and locked amounts of one asset.
type Balance struct {
	Asset            string          `json:"asset"`
	TotalBalance     decimal.Decimal `json:"totalBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// Trade is one executed market trade.
type Trade struct {
	Price      decimal.Decimal `json:"p"`
	Qty        decimal.Decimal `json:"q"`
	Timestamp  int64           `json:"ts"`
	BuyerMaker bool            `json:"bm"`
}

// Bar is one OHLCV candle.
type Bar struct {
	Time   int64           `json:"ts"`
	Open   decimal.Decimal `json:"o"`
	High   decimal.Decimal `json:"h"`
	Low    decimal.Decimal `json:"l"`
	Close  decimal.Decimal `json:"c"`
	Volume decimal.Decimal `json:"v"`
}

// Ticker is a 24h market summary for one symbol.
type Ticker struct {
	Symbol string          `json:"symbol"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume decimal.Decimal `json:"volume"`
}

// Asset describes one listed asset.
type Asset struct {
	AssetCode string `json:"assetCode"`
	AssetName string `json:"assetName"`
	Precision int    `json:"precisionScale"`
	Status    string `json:"status"`
}

// AccountInfo describes the API key's account as reported by the exchange,
// most notably the account group that prefixes group-scoped REST paths.
type AccountInfo struct {
	AccountGroup    int      `json:"accountGroup"`
	Email           string   `json:"email"`
	UserUID         string   `json:"userUID"`
	TradePermission bool     `json:"tradePermission"`
	ViewPermission  bool     `json:"viewPermission"`
	CashAccount     []string `json:"cashAccount"`
}

// OrderEvent is one entry of the account's order history.
type OrderEvent struct {
	Symbol       string          `json:"symbol"`
	OrderID      string          `json:"orderId"`
	Side         string          `json:"side"`
	OrderType    string          `json:"orderType"`
	Status       string          `json:"status"`
	Price        decimal.Decimal `json:"price"`
	OrderQty     decimal.Decimal `json:"orderQty"`
	CumFilledQty decimal.Decimal `json:"cumFilledQty"`
	LastExecTime int64           `json:"lastExecTime"`
}

// Product describes one tradable pair.
type Product struct {
	Symbol     string          `json:"symbol"`
	BaseAsset  string          `json:"baseAsset"`
	QuoteAsset string          `json:"quoteAsset"`
	Status     string          `json:"status"`
	TickSize   decimal.Decimal `json:"tickSize"`
	LotSize    decimal.Decimal `json:"lotSize"`
}

// UTCTimestamp returns the current time in epoch milliseconds, the unit the
// exchange uses for all timestamps.
func UTCTimestamp() int64 {
	return time.Now().UnixMilli()
}
