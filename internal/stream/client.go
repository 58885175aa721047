package stream

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ChartServer/internal/domain/repository"
	"ChartServer/internal/market"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one WebSocket connection with its subscription state.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	dests   map[repository.Destination]struct{}
	symbols map[market.Symbol]struct{} // empty means all symbols
}

// controlMessage is what clients send to adjust their subscriptions.
type controlMessage struct {
	Action  string   `json:"action"` // subscribe or unsubscribe
	Streams []string `json:"streams,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		dests:   make(map[repository.Destination]struct{}),
		symbols: make(map[market.Symbol]struct{}),
	}
}

// applyQuery seeds subscriptions from the upgrade request. With no streams
// parameter the client receives both ticks and candles.
func (c *Client) applyQuery(streams, symbols string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if streams == "" {
		c.dests[repository.DestinationTick] = struct{}{}
		c.dests[repository.DestinationCandle] = struct{}{}
	} else {
		for _, s := range strings.Split(streams, ",") {
			d := repository.Destination(strings.TrimSpace(strings.ToLower(s)))
			if repository.IsValidDestination(d) {
				c.dests[d] = struct{}{}
			}
		}
	}

	if symbols != "" {
		for _, s := range strings.Split(symbols, ",") {
			sym, err := market.FromName(strings.TrimSpace(s))
			if err == nil {
				c.symbols[sym] = struct{}{}
			}
		}
	}
}

func (c *Client) wants(symbol market.Symbol, dest repository.Destination) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.dests[dest]; !ok {
		return false
	}
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

func (c *Client) handleControl(raw []byte) {
	var msg controlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, s := range msg.Streams {
			d := repository.Destination(strings.ToLower(s))
			if repository.IsValidDestination(d) {
				c.dests[d] = struct{}{}
			}
		}
		for _, s := range msg.Symbols {
			if sym, err := market.FromName(s); err == nil {
				c.symbols[sym] = struct{}{}
			}
		}
	case "unsubscribe":
		for _, s := range msg.Streams {
			delete(c.dests, repository.Destination(strings.ToLower(s)))
		}
		for _, s := range msg.Symbols {
			if sym, err := market.FromName(s); err == nil {
				delete(c.symbols, sym)
			}
		}
	}
}

// readPump consumes control messages until the connection dies.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleControl(raw)
	}
}

// writePump flushes outgoing frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
