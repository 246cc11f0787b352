package e2e

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/leftys/go-ascendex/pkg/exchanges/ascendex"
	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
)

// TestAscendexClient_E2E exercises the client against the real exchange.
//
// To run this test:
// ASCENDEX_GROUP_ID=N ASCENDEX_API_KEY=... ASCENDEX_API_SECRET=... go test -v ./test/e2e
func TestAscendexClient_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	_ = godotenv.Load("../../.env")

	groupID := os.Getenv("ASCENDEX_GROUP_ID")
	apiKey := os.Getenv("ASCENDEX_API_KEY")
	apiSecret := os.Getenv("ASCENDEX_API_SECRET")
	if groupID == "" || apiKey == "" || apiSecret == "" {
		t.Skip("ASCENDEX_GROUP_ID, ASCENDEX_API_KEY and ASCENDEX_API_SECRET not set")
	}

	options := interfaces.NewExchangeOptions()
	options.LogLevel = "debug"
	options.RequestTimeout = 10 * time.Second

	client, err := ascendex.NewClient(groupID, apiKey, apiSecret, options)
	require.NoError(t, err)
	defer client.Close()

	trades := make(chan json.RawMessage, 16)
	require.NoError(t, client.Subscribe(ascendex.ChannelTrades, "BTC/USDT", ascendex.SubscriberFunc(
		func(channel, symbol string, data json.RawMessage) {
			select {
			case trades <- data:
			default:
			}
		})))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, client.Start(ctx))

	t.Run("GetBalance", func(t *testing.T) {
		balances, err := client.GetBalance(ctx)
		require.NoError(t, err)
		t.Logf("got %d balances", len(balances))
	})

	t.Run("GetProducts", func(t *testing.T) {
		products, err := client.Rest().GetProducts(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, products)
	})

	t.Run("GetCandles", func(t *testing.T) {
		bars, err := client.Rest().GetCandles(ctx, "BTC/USDT", "1",
			time.Now().Add(-time.Hour), time.Now())
		require.NoError(t, err)
		require.NotEmpty(t, bars)
	})

	t.Run("DepthSnapshot", func(t *testing.T) {
		data, err := client.DepthSnapshot(ctx, "BTC/USDT")
		require.NoError(t, err)
		require.NotEmpty(t, data)
	})

	t.Run("OpenOrders", func(t *testing.T) {
		_, err := client.OpenOrders(ctx, "")
		require.NoError(t, err)
	})

	t.Run("TradeStream", func(t *testing.T) {
		select {
		case data := <-trades:
			t.Logf("trade push: %s", data)
		case <-time.After(time.Minute):
			t.Log("no trade pushed within a minute, market may be quiet")
		}
	})
}
