// ws.go implements the WebSocket feeds for live market data and order
// updates.
//
// Two independent feeds run concurrently:
//
//   - Market feed (public): subscribes by symbol, receives tick-level
//     price updates.
//
//   - User feed (authenticated): subscribes by symbol, receives order
//     lifecycle events (fills, cancellations, rejections).
//
// Both feeds auto-reconnect with exponential backoff (1s -> 30s max) and
// re-subscribe to all tracked symbols on reconnection. A read deadline
// (90s) ensures silent server failures are detected within ~2 missed pings.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 256
)

// wireSubscribeMsg is the subscription control message sent to the venue.
type wireSubscribeMsg struct {
	Type    string            `json:"type"`
	Symbols []string          `json:"symbols"`
	Auth    map[string]string `json:"auth,omitempty"`
}

// wireTick is a public market-data event as received over the wire.
type wireTick struct {
	EventType string `json:"event_type"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// wireOrderEvent is an authenticated order lifecycle event as received
// over the wire.
type wireOrderEvent struct {
	EventType      string `json:"event_type"`
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	FilledQuantity int64  `json:"filled_quantity"`
}

// Feed manages a single WebSocket connection (market or user channel). It
// handles connection lifecycle, subscription tracking, message routing,
// and automatic reconnection with exponential backoff.
type Feed struct {
	url         string
	conn        *websocket.Conn
	connMu      sync.Mutex
	auth        *Auth // nil for market channel, set for user channel
	channelType string

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	tickCh  chan core.MarketDataEvent
	orderCh chan core.OrderUpdate

	logger *slog.Logger
}

// NewMarketFeed creates a WebSocket feed for the public market channel.
func NewMarketFeed(wsURL string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		url:         wsURL,
		channelType: "market",
		subscribed:  make(map[string]bool),
		tickCh:      make(chan core.MarketDataEvent, eventBufferSize),
		orderCh:     make(chan core.OrderUpdate, eventBufferSize),
		logger:      logger.With("component", "ws_market"),
	}
}

// NewUserFeed creates a WebSocket feed for the authenticated order channel.
func NewUserFeed(wsURL string, auth *Auth, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		url:         wsURL,
		auth:        auth,
		channelType: "user",
		subscribed:  make(map[string]bool),
		tickCh:      make(chan core.MarketDataEvent, eventBufferSize),
		orderCh:     make(chan core.OrderUpdate, eventBufferSize),
		logger:      logger.With("component", "ws_user"),
	}
}

// MarketDataEvents returns a read-only channel of parsed tick events.
func (f *Feed) MarketDataEvents() <-chan core.MarketDataEvent { return f.tickCh }

// OrderUpdateEvents returns a read-only channel of order lifecycle events.
func (f *Feed) OrderUpdateEvents() <-chan core.OrderUpdate { return f.orderCh }

// Run connects and maintains the WebSocket connection with auto-reconnect.
// Blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Subscribe adds symbols to the tracked subscription set and, if the feed
// is currently connected, sends a subscribe message for them.
func (f *Feed) Subscribe(symbols []string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		f.subscribed[s] = true
	}
	f.subscribedMu.Unlock()

	f.connMu.Lock()
	connected := f.conn != nil
	f.connMu.Unlock()
	if !connected {
		// tracked symbols are sent with the initial subscription once Run connects
		return nil
	}
	return f.writeJSON(wireSubscribeMsg{Type: "subscribe", Symbols: symbols})
}

// Unsubscribe removes symbols from the tracked subscription set.
func (f *Feed) Unsubscribe(symbols []string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		delete(f.subscribed, s)
	}
	f.subscribedMu.Unlock()

	return f.writeJSON(wireSubscribeMsg{Type: "unsubscribe", Symbols: symbols})
}

// Close gracefully closes the connection.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.sendInitialSubscription(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("websocket connected", "channel", f.channelType)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatchMessage(msg)
	}
}

func (f *Feed) sendInitialSubscription() error {
	f.subscribedMu.RLock()
	symbols := make([]string, 0, len(f.subscribed))
	for s := range f.subscribed {
		symbols = append(symbols, s)
	}
	f.subscribedMu.RUnlock()

	msg := wireSubscribeMsg{Type: f.channelType, Symbols: symbols}
	if f.channelType == "user" && f.auth != nil {
		creds := f.auth.WSAuthPayload()
		msg.Auth = map[string]string{
			"api_key":    creds.APIKey,
			"secret":     creds.Secret,
			"passphrase": creds.Passphrase,
		}
	}
	return f.writeJSON(msg)
}

func (f *Feed) dispatchMessage(data []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch envelope.EventType {
	case "tick":
		var evt wireTick
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal tick event", "error", err)
			return
		}
		price, err := decimal.NewFromString(evt.Price)
		if err != nil {
			f.logger.Error("parse tick price", "error", err, "price", evt.Price)
			return
		}
		out := core.MarketDataEvent{
			Timestamp: time.Unix(evt.Timestamp, 0).UTC(),
			Symbol:    evt.Symbol,
			Price:     price,
		}
		select {
		case f.tickCh <- out:
		default:
			f.logger.Warn("tick channel full, dropping event", "symbol", evt.Symbol)
		}

	case "order":
		var evt wireOrderEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal order event", "error", err)
			return
		}
		out := core.OrderUpdate{Order: &core.Order{
			ID:             evt.OrderID,
			Status:         venueStatus(evt.Status),
			FilledQuantity: evt.FilledQuantity,
		}}
		select {
		case f.orderCh <- out:
		default:
			f.logger.Warn("order channel full, dropping event", "order_id", evt.OrderID)
		}

	default:
		f.logger.Debug("unknown ws event type", "type", envelope.EventType)
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
