// Package go-ascendex provides a client library for the AscendEX
// cryptocurrency exchange.
//
// The core of the library is a multiplexed WebSocket client that carries
// market data subscriptions, account event streams and trading commands
// over one authenticated connection. Operations the stream does not offer,
// such as balances and historical data, go through a signed REST surface.
//
// Core Features:
//
//   - Single authenticated WebSocket connection shared by all channels
//   - Market data subscriptions (trades, depth, bbo, bar, ref-px, summary)
//   - Account event stream (order channel)
//   - Trading commands with correlated acknowledgements
//   - Automatic reconnection with subscription replay
//   - Signed REST requests with retries and rate limiting
//
// The entry point is ascendex.NewClient, which takes the account group,
// the API key pair and an optional set of ExchangeOptions. The client does
// not touch the network until Start is called; subscriptions registered
// before Start are sent once the connection is authenticated and replayed
// after every reconnect.
//
// # Standard Errors
//
// The library defines standardized errors in pkg/exchanges/interfaces for
// consistent handling across the WebSocket and REST surfaces:
//
//   - ErrNotConnected: an operation was attempted without an established
//     connection
//
//   - ErrNotReady: the client is connected but has not finished the
//     authentication handshake
//
//   - ErrConnectionLost: the connection dropped while a request was in
//     flight; its outcome on the exchange is unknown
//
//   - ErrRequestTimeout: the exchange did not answer a request within the
//     configured timeout
//
//   - ErrInvalidCredentials: the exchange rejected the API key pair
//
//   - ErrClientClosed: the client has been closed and cannot be reused
//
//   - APIError: a structured rejection from the exchange, carrying the
//     exchange's error code and reason
//
// # Basic Usage
//
//	client, err := ascendex.NewClient(groupID, apiKey, apiSecret, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Subscribe(ascendex.ChannelTrades, "BTC/USDT", ascendex.SubscriberFunc(
//		func(channel, symbol string, data json.RawMessage) {
//			fmt.Println(symbol, string(data))
//		}))
//
//	if err := client.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
package goascendex
