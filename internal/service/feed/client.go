package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a LiveFeed backed by a WebSocket price stream.
// The subscription set survives reconnects: Reconnect re-issues a subscribe
// frame for every tracked symbol.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   map[string]struct{}
}

// New creates a WebSocket LiveFeed.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) drepo.LiveFeed {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		symbols:        make(map[string]struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("feed connected", applogger.String("url", c.websocketURL))
	return nil
}

type controlFrame struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Subscribe adds a symbol and sends a subscribe frame.
func (c *Client) Subscribe(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	if err := c.conn.WriteJSON(controlFrame{Type: "subscribe", Symbol: symbol}); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	c.symbols[symbol] = struct{}{}
	c.log.Info("feed subscribed", applogger.String("symbol", symbol))
	return nil
}

// Unsubscribe removes a symbol and sends an unsubscribe frame.
func (c *Client) Unsubscribe(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.symbols, symbol)
	if c.conn == nil || !c.connected {
		return nil
	}
	if err := c.conn.WriteJSON(controlFrame{Type: "unsubscribe", Symbol: symbol}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	c.log.Info("feed unsubscribed", applogger.String("symbol", symbol))
	return nil
}

type tickFrame struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
}

type feedMessage struct {
	Type string      `json:"type"`
	Data []tickFrame `json:"data"`
}

// Read streams tick events and errors until the context is cancelled or the
// connection drops.
func (c *Client) Read(ctx context.Context) (<-chan models.LiveTick, <-chan error) {
	ticks := make(chan models.LiveTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-tick frames
					continue
				}
				if m.Type != "stock_update" {
					continue
				}
				for _, d := range m.Data {
					tick := models.LiveTick{
						Symbol:    d.Symbol,
						Timestamp: d.Timestamp,
						Price:     d.Price,
						Change:    d.Change,
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes, redials and resubscribes the tracked symbol set.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	tracked := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		tracked = append(tracked, s)
	}
	c.mu.Unlock()
	for _, s := range tracked {
		if err := c.Subscribe(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the WS connection. The subscription set is kept so a later
// Reconnect can restore it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
