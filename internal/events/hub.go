package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

type client struct {
	hub         *Hub
	conn        *websocket.Conn
	orderNumber string
	send        chan Event
}

// Hub fans order events out to websocket clients subscribed to that order
// number. The subscriber set is owned by the Run goroutine.
type Hub struct {
	subscribers map[string]map[*client]struct{}
	broadcast   chan Event
	register    chan *client
	unregister  chan *client
	done        chan struct{}
	clients     atomic.Int64
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates a hub; "*" in allowedOrigins accepts any origin
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*client]struct{}),
		broadcast:   make(chan Event, 256),
		register:    make(chan *client),
		unregister:  make(chan *client),
		done:        make(chan struct{}),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.subscribers {
				for c := range set {
					close(c.send)
				}
			}
			h.subscribers = make(map[string]map[*client]struct{})
			h.clients.Store(0)
			return

		case c := <-h.register:
			set, ok := h.subscribers[c.orderNumber]
			if !ok {
				set = make(map[*client]struct{})
				h.subscribers[c.orderNumber] = set
			}
			set[c] = struct{}{}
			h.logger.Debug("Tracking client connected",
				zap.String("order_number", c.orderNumber),
				zap.Int64("client_count", h.clients.Add(1)),
			)

		case c := <-h.unregister:
			h.remove(c)

		case event := <-h.broadcast:
			for c := range h.subscribers[event.OrderNumber] {
				select {
				case c.send <- event:
				default:
					h.logger.Warn("Tracking client too slow, disconnecting",
						zap.String("order_number", c.orderNumber),
					)
					h.remove(c)
				}
			}
		}
	}
}

// remove must only be called from Run
func (h *Hub) remove(c *client) {
	set, ok := h.subscribers[c.orderNumber]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subscribers, c.orderNumber)
	}
	close(c.send)
	h.logger.Debug("Tracking client disconnected",
		zap.String("order_number", c.orderNumber),
		zap.Int64("client_count", h.clients.Add(-1)),
	)
}

// Publish queues the event for subscribers of its order number.
// The event is dropped when the queue is full.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("type", event.Type),
			zap.String("order_number", event.OrderNumber),
		)
	}
	return nil
}

// ClientCount returns the number of connected tracking clients
func (h *Hub) ClientCount() int {
	return int(h.clients.Load())
}

// ServeOrder upgrades the request and subscribes the connection to orderNumber
func (h *Hub) ServeOrder(w http.ResponseWriter, r *http.Request, orderNumber string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		orderNumber: orderNumber,
		send:        make(chan Event, sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				c.hub.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
