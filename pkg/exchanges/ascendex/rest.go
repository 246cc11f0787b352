package ascendex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/leftys/go-ascendex/pkg/auth"
	"github.com/leftys/go-ascendex/pkg/common"
	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
	"github.com/leftys/go-ascendex/pkg/ratelimit"
)

// RestClient is the request/response collaborator for operations not
// available over the socket. It is stateless: each call is one signed HTTP
// round trip and it takes no part in the WebSocket state machine.
type RestClient struct {
	baseURL string
	groupID string
	signer  *auth.Signer
	http    common.HTTPClient
	logger  logging.Logger
}

// NewRestClient creates a REST client for the given account group.
func NewRestClient(groupID string, signer *auth.Signer, options *interfaces.ExchangeOptions, logger logging.Logger) *RestClient {
	if options == nil {
		options = interfaces.NewExchangeOptions()
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	httpClient := common.NewHTTPClient(&common.ClientConfig{
		Timeout: options.HTTPTimeout,
		RateLimit: ratelimit.Rate{
			Limit:    options.MaxRequestsPerSecond,
			Interval: time.Second,
		},
		MaxRetries: 3,
		RetryDelay: time.Second,
		Logger:     logger,
	})

	return &RestClient{
		baseURL: options.RESTBaseURL,
		groupID: groupID,
		signer:  signer,
		http:    httpClient,
		logger:  logger,
	}
}

// requestSpec describes one REST call. path is the last portion of the API
// path without route prefix, account, version or leading slash; it is also
// the string covered by the signature.
type requestSpec struct {
	path    string
	account string // "cash", "margin", ... prefixed to the path when set
	group   bool   // include the account group in the URI
	version string // defaults to v1
	params  url.Values
}

func (r *RestClient) get(ctx context.Context, spec requestSpec) (json.RawMessage, error) {
	version := spec.version
	if version == "" {
		version = "v1"
	}

	fullPath := spec.path
	if spec.account != "" {
		fullPath = spec.account + "/" + fullPath
	}
	fullPath = auth.RoutePrefix + "/" + version + "/" + fullPath
	if spec.group {
		fullPath = r.groupID + "/" + fullPath
	}

	uri := r.baseURL + "/" + fullPath
	if len(spec.params) > 0 {
		uri += "?" + spec.params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	// The signature covers the bare path, not the expanded URI
	if err := r.signer.AuthHeaders(req.Header, interfaces.UTCTimestamp(), spec.path); err != nil {
		return nil, err
	}

	resp, err := r.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, interfaces.NewAPIError(resp.StatusCode, resp.Status, string(body))
	}

	var envelope struct {
		Code    int             `json:"code"`
		Reason  string          `json:"reason"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	if envelope.Code != 0 || envelope.Reason != "" {
		return nil, interfaces.NewAPIError(envelope.Code, envelope.Reason, envelope.Message)
	}

	return envelope.Data, nil
}

// GetAssets lists all assets known to the exchange.
func (r *RestClient) GetAssets(ctx context.Context) ([]interfaces.Asset, error) {
	data, err := r.get(ctx, requestSpec{path: "assets"})
	if err != nil {
		return nil, err
	}

	var assets []interfaces.Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	return assets, nil
}

// GetProducts lists all tradable pairs.
func (r *RestClient) GetProducts(ctx context.Context) ([]interfaces.Product, error) {
	data, err := r.get(ctx, requestSpec{path: "products"})
	if err != nil {
		return nil, err
	}

	var products []interfaces.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	return products, nil
}

// GetTicker returns the 24h summary for one symbol.
func (r *RestClient) GetTicker(ctx context.Context, symbol string) (*interfaces.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := r.get(ctx, requestSpec{path: "ticker", params: params})
	if err != nil {
		return nil, err
	}

	var ticker interfaces.Ticker
	if err := json.Unmarshal(data, &ticker); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	return &ticker, nil
}

// GetBalance returns the cash account balances of the account group.
func (r *RestClient) GetBalance(ctx context.Context) ([]interfaces.Balance, error) {
	data, err := r.get(ctx, requestSpec{path: "balance", account: "cash", group: true})
	if err != nil {
		return nil, err
	}

	var balances []interfaces.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	return balances, nil
}

// GetInfo returns the account metadata attached to the API key, including
// the account group used in group-scoped paths.
func (r *RestClient) GetInfo(ctx context.Context) (*interfaces.AccountInfo, error) {
	data, err := r.get(ctx, requestSpec{path: "info"})
	if err != nil {
		return nil, err
	}

	var info interfaces.AccountInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}
	return &info, nil
}

// GetCandles returns up to 500 OHLCV bars for a symbol and interval.
// Interval is in the exchange's minute notation, e.g. "1" for minute bars
// and "60" for hourly.
func (r *RestClient) GetCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]interfaces.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("from", strconv.FormatInt(from.UnixMilli(), 10))
	params.Set("to", strconv.FormatInt(to.UnixMilli(), 10))
	params.Set("n", "500")

	data, err := r.get(ctx, requestSpec{path: "barhist", params: params})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Symbol string         `json:"s"`
		Data   interfaces.Bar `json:"data"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	bars := make([]interfaces.Bar, len(rows))
	for i, row := range rows {
		bars[i] = row.Data
	}
	return bars, nil
}

// GetOrderHistory returns up to limit past orders of the cash account for
// one symbol, sorted by last execution time.
func (r *RestClient) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]interfaces.OrderEvent, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("account", "cash")
	params.Set("limit", strconv.Itoa(limit))

	data, err := r.get(ctx, requestSpec{path: "order/hist", group: true, version: "v2", params: params})
	if err != nil {
		return nil, err
	}

	var events []interfaces.OrderEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].LastExecTime < events[j].LastExecTime
	})
	return events, nil
}

// GetFills returns one page of orders that had at least one fill, sorted by
// last execution time. The v1 history endpoint pages its results and nests
// them one level deeper than the other endpoints.
func (r *RestClient) GetFills(ctx context.Context, symbol string, pageSize, page int) ([]interfaces.OrderEvent, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("category", "CASH")
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("status", "WithFill")

	data, err := r.get(ctx, requestSpec{path: "order/hist", group: true, params: params})
	if err != nil {
		return nil, err
	}

	var paged struct {
		Data []interfaces.OrderEvent `json:"data"`
	}
	if err := json.Unmarshal(data, &paged); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedMessage, err)
	}

	sort.Slice(paged.Data, func(i, j int) bool {
		return paged.Data[i].LastExecTime < paged.Data[j].LastExecTime
	})
	return paged.Data, nil
}
