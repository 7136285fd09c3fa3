package tdx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"TapeWatch/internal/domain/models"
	drepo "TapeWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a PrintStream backed by a quote-gateway WebSocket that
// relays per-trade prints for subscribed securities.
type Client struct {
	token          string
	websocketURL   string
	codes          []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new trade-print stream client.
func New(token, websocketURL string, codes []string, reconnectDelay, pingInterval time.Duration) drepo.PrintStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		codes:          codes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quote gateway connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("tdx: connected")
	return nil
}

// Subscribe subscribes to the configured security codes.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("quote gateway not connected")
	}
	for _, code := range c.codes {
		msg := map[string]string{"type": "subscribe", "code": code}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", code, err)
		}
		log.Printf("tdx: subscribed %s", code)
	}
	return nil
}

type wirePrint struct {
	Code   string  `json:"code"`
	Seq    int64   `json:"seq"`
	T      int64   `json:"t"` // ms
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	BS     int     `json:"bs"` // 0 buy, 1 sell, anything else neutral
}

type wireMessage struct {
	Type string      `json:"type"`
	Data []wirePrint `json:"data"`
}

// direction maps the gateway's buy-or-sell flag. Zero means buy on this
// feed, not unknown.
func direction(bs int) models.Direction {
	switch bs {
	case 0:
		return models.DirectionBuy
	case 1:
		return models.DirectionSell
	default:
		return models.DirectionNeutral
	}
}

// Read streams trade prints and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.TradePrint, <-chan error) {
	prints := make(chan *models.TradePrint, 1024)
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
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(prints)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("quote gateway conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("quote gateway read: %w", err)
					return
				}
				var m wireMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-print frames
					continue
				}
				if m.Type != "print" {
					continue
				}
				for _, d := range m.Data {
					p := &models.TradePrint{
						Code:      d.Code,
						Seq:       d.Seq,
						Time:      time.UnixMilli(d.T),
						Price:     d.Price,
						Turnover:  d.Amount,
						Direction: direction(d.BS),
					}
					select {
					case prints <- p:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return prints, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
