// Package stream fans chart frames out to WebSocket subscribers.
package stream

import (
	"net/http"
	"sync"

	"ChartServer/internal/domain/repository"
	"ChartServer/internal/market"
	xlogger "ChartServer/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks connected WebSocket clients and broadcasts frames to them.
// Clients subscribe per destination (tick or candle) and optionally per
// symbol; an empty symbol set means all symbols.
type Hub struct {
	log *xlogger.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *xlogger.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*Client]struct{}),
	}
}

// Broadcast delivers a frame to every client subscribed to the destination
// and symbol. Slow clients are dropped rather than blocking the caller.
func (h *Hub) Broadcast(symbol market.Symbol, dest repository.Destination, frame string) {
	payload := []byte(frame)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(symbol, dest) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Send buffer full. The write pump will notice the closed
			// channel on unregister; skip here to keep broadcast non-blocking.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the client. Initial
// subscriptions come from the "streams" and "symbols" query parameters;
// clients may change them later with subscribe/unsubscribe messages.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn)
	client.applyQuery(c.QueryParam("streams"), c.QueryParam("symbols"))

	h.register(client)
	h.log.Info("ws client connected",
		xlogger.String("remote", conn.RemoteAddr().String()),
		xlogger.Int("clients", h.ClientCount()),
	)

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info("ws client disconnected", xlogger.Int("clients", count))
	}
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
	h.mu.Unlock()
	return nil
}
