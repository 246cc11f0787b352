package ascendex

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftys/go-ascendex/pkg/auth"
	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
)

const (
	testAPIKey    = "test-key"
	testAPISecret = "dGVzdC1zZWNyZXQ=" // base64 of "test-secret"
)

func newTestRestClient(t *testing.T, handler http.HandlerFunc) *RestClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	signer, err := auth.NewSigner(testAPIKey, testAPISecret)
	require.NoError(t, err)

	opts := interfaces.NewExchangeOptions()
	opts.RESTBaseURL = server.URL
	opts.HTTPTimeout = 2 * time.Second

	logger := logging.NewLogger()
	logger.SetLevel(logging.ERROR)

	return NewRestClient("6", signer, opts, logger)
}

func TestRestGetBalance(t *testing.T) {
	var gotPath string
	var gotHeader http.Header

	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		fmt.Fprint(w, `{"code":0,"data":[
			{"asset":"BTC","totalBalance":"1.5","availableBalance":"1.2"},
			{"asset":"USDT","totalBalance":"1000","availableBalance":"1000"}
		]}`)
	})

	balances, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "BTC", balances[0].Asset)
	assert.Equal(t, "1.5", balances[0].TotalBalance.String())
	assert.Equal(t, "1.2", balances[0].AvailableBalance.String())

	// Account group and account category are part of the URI
	assert.Equal(t, "/6/api/pro/v1/cash/balance", gotPath)

	// The signature covers "<timestamp>+balance" with the bare path
	tsHeader := gotHeader.Get(auth.HeaderTimestamp)
	require.NotEmpty(t, tsHeader)
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	require.NoError(t, err)

	secret, _ := base64.StdEncoding.DecodeString(testAPISecret)
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d+balance", ts)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, testAPIKey, gotHeader.Get(auth.HeaderKey))
	assert.Equal(t, want, gotHeader.Get(auth.HeaderSignature))
}

func TestRestGetAssets(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pro/v1/assets", r.URL.Path)
		fmt.Fprint(w, `{"code":0,"data":[{"assetCode":"BTC","assetName":"Bitcoin","precisionScale":9,"status":"Normal"}]}`)
	})

	assets, err := client.GetAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "BTC", assets[0].AssetCode)
	assert.Equal(t, 9, assets[0].Precision)
}

func TestRestGetProducts(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":[{"symbol":"BTC/USDT","baseAsset":"BTC","quoteAsset":"USDT","status":"Normal","tickSize":"0.01","lotSize":"0.0001"}]}`)
	})

	products, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "BTC/USDT", products[0].Symbol)
	assert.Equal(t, "0.01", products[0].TickSize.String())
}

func TestRestGetTicker(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC/USDT", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"code":0,"data":{"symbol":"BTC/USDT","open":"49000","close":"50000","high":"51000","low":"48000","volume":"123.4"}}`)
	})

	ticker, err := client.GetTicker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "50000", ticker.Close.String())
}

func TestRestGetCandles(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("interval"))
		assert.Equal(t, "500", q.Get("n"))
		fmt.Fprint(w, `{"code":0,"data":[
			{"s":"BTC/USDT","data":{"ts":1000,"o":"1","h":"2","l":"0.5","c":"1.5","v":"10"}},
			{"s":"BTC/USDT","data":{"ts":2000,"o":"1.5","h":"3","l":"1","c":"2","v":"20"}}
		]}`)
	})

	from := time.UnixMilli(1000)
	to := time.UnixMilli(2000)
	bars, err := client.GetCandles(context.Background(), "BTC/USDT", "1", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1000), bars[0].Time)
	assert.Equal(t, "1.5", bars[0].Close.String())
}

func TestRestGetOrderHistorySortsByExecTime(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/api/pro/v2/order/hist", r.URL.Path)
		fmt.Fprint(w, `{"code":0,"data":[
			{"orderId":"b","symbol":"BTC/USDT","lastExecTime":2000},
			{"orderId":"a","symbol":"BTC/USDT","lastExecTime":1000}
		]}`)
	})

	events, err := client.GetOrderHistory(context.Background(), "BTC/USDT", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].OrderID)
	assert.Equal(t, "b", events[1].OrderID)
}

func TestRestGetInfo(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pro/v1/info", r.URL.Path)
		fmt.Fprint(w, `{"code":0,"data":{
			"accountGroup":6,"email":"trader@example.com","userUID":"U123",
			"tradePermission":true,"viewPermission":true,"cashAccount":["cshXYZ"]
		}}`)
	})

	info, err := client.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, info.AccountGroup)
	assert.Equal(t, "U123", info.UserUID)
	assert.True(t, info.TradePermission)
	require.Len(t, info.CashAccount, 1)
}

func TestRestGetFillsPagesAndSorts(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/api/pro/v1/order/hist", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "BTC/USDT", q.Get("symbol"))
		assert.Equal(t, "CASH", q.Get("category"))
		assert.Equal(t, "25", q.Get("pageSize"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "WithFill", q.Get("status"))
		fmt.Fprint(w, `{"code":0,"data":{"page":2,"pageSize":25,"data":[
			{"orderId":"later","symbol":"BTC/USDT","lastExecTime":2000},
			{"orderId":"earlier","symbol":"BTC/USDT","lastExecTime":1000}
		]}}`)
	})

	fills, err := client.GetFills(context.Background(), "BTC/USDT", 25, 2)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "earlier", fills[0].OrderID)
	assert.Equal(t, "later", fills[1].OrderID)
}

func TestRestEnvelopeError(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":6010,"reason":"NOT_ENOUGH_BALANCE","message":"insufficient balance"}`)
	})

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var apiErr *interfaces.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 6010, apiErr.Code)
	assert.Equal(t, "NOT_ENOUGH_BALANCE", apiErr.Reason)
}

func TestRestHTTPError(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var apiErr *interfaces.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}

func TestRestMalformedBody(t *testing.T) {
	client := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json at all`)
	})

	_, err := client.GetBalance(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrMalformedMessage)
}
