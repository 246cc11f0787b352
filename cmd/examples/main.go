package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/leftys/go-ascendex/pkg/exchanges/ascendex"
	"github.com/leftys/go-ascendex/pkg/exchanges/interfaces"
	"github.com/leftys/go-ascendex/pkg/logging"
)

func main() {
	// Credentials come from the environment, optionally via a .env file
	_ = godotenv.Load()

	logger := logging.NewZapLogger(
		logging.WithDevelopmentMode(),
		logging.WithLogLevel(logging.DEBUG),
	)

	groupID := os.Getenv("ASCENDEX_GROUP_ID")
	apiKey := os.Getenv("ASCENDEX_API_KEY")
	apiSecret := os.Getenv("ASCENDEX_API_SECRET")
	if groupID == "" || apiKey == "" || apiSecret == "" {
		logger.Error("ASCENDEX_GROUP_ID, ASCENDEX_API_KEY and ASCENDEX_API_SECRET must be set")
		os.Exit(1)
	}

	options := interfaces.NewExchangeOptions()
	options.LogLevel = "debug"
	options.RequestTimeout = 10 * time.Second

	client, err := ascendex.NewClient(groupID, apiKey, apiSecret, options)
	if err != nil {
		logger.Error("failed to create client", logging.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	// Subscriptions registered before Start are sent once the connection
	// is authenticated
	err = client.Subscribe(ascendex.ChannelTrades, "BTC/USDT", ascendex.SubscriberFunc(
		func(channel, symbol string, data json.RawMessage) {
			logger.Info("trade push",
				logging.String("symbol", symbol),
				logging.String("data", string(data)),
			)
		}))
	if err != nil {
		logger.Error("failed to subscribe", logging.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting")
	if err := client.Start(ctx); err != nil {
		logger.Error("failed to connect", logging.Error(err))
		os.Exit(1)
	}

	balances, err := client.GetBalance(ctx)
	if err != nil {
		logger.Error("failed to fetch balances", logging.Error(err))
		os.Exit(1)
	}
	for _, b := range balances {
		logger.Info("balance",
			logging.String("asset", b.Asset),
			logging.String("total", b.TotalBalance.String()),
			logging.String("available", b.AvailableBalance.String()),
		)
	}

	orders, err := client.OpenOrders(ctx, "")
	if err != nil {
		logger.Error("failed to fetch open orders", logging.Error(err))
	} else {
		logger.Info("open orders", logging.String("data", string(orders)))
	}

	// Stream trades until interrupted
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
}
