package viewsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"canteen/internal/domain"
)

const (
	MessageHello        = "hello"
	MessageInvalidate   = "invalidate"
	MessageOrderUpdated = "order.updated"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var ErrHubStopped = errors.New("websocket hub stopped")

// Message is the push payload. Dashboards receive invalidate messages; a
// client subscribed to one order receives order.updated for that order only.
type Message struct {
	Type        string             `json:"type"`
	Version     uint64             `json:"version"`
	Scopes      []Scope            `json:"scopes,omitempty"`
	OrderID     int64              `json:"orderId,omitempty"`
	OrderNumber string             `json:"orderNumber,omitempty"`
	Status      domain.OrderStatus `json:"status,omitempty"`
	At          time.Time          `json:"at"`
}

type hubClient struct {
	id      string
	orderID string
	conn    *websocket.Conn
	send    chan []byte
}

func (c *hubClient) follows(change Change) bool {
	if c.orderID == "" {
		return false
	}
	return strconv.FormatInt(change.OrderID, 10) == c.orderID ||
		change.OrderNumber == c.orderID ||
		change.Barcode == c.orderID
}

// Hub fans notifications out to websocket clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients    map[*hubClient]struct{}
	register   chan *hubClient
	unregister chan *hubClient
	broadcast  chan Notification
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	version    uint64
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*hubClient]struct{}),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		broadcast:  make(chan Notification, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.send)
		}
		h.clients = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.deliver(client, Message{Type: MessageHello, Version: h.version, At: time.Now().UTC()})
			h.logger.Debug("websocket client connected",
				zap.String("clientId", client.id), zap.String("orderRef", client.orderID))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case n := <-h.broadcast:
			if n.Version > h.version {
				h.version = n.Version
			}
			h.fanOut(n)
		}
	}
}

func (h *Hub) fanOut(n Notification) {
	invalidate := Message{
		Type:        MessageInvalidate,
		Version:     n.Version,
		Scopes:      n.Scopes,
		OrderID:     n.Change.OrderID,
		OrderNumber: n.Change.OrderNumber,
		Status:      n.Change.Status,
		At:          n.At,
	}
	updated := invalidate
	updated.Type = MessageOrderUpdated
	updated.Scopes = nil

	for client := range h.clients {
		switch {
		case client.orderID == "":
			h.deliver(client, invalidate)
		case client.follows(n.Change):
			h.deliver(client, updated)
		}
	}
}

// deliver drops a client whose buffer is full; it reconnects and refetches.
func (h *Hub) deliver(client *hubClient, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket message", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
	default:
		delete(h.clients, client)
		close(client.send)
		h.logger.Warn("dropping slow websocket client", zap.String("clientId", client.id))
	}
}

func (h *Hub) Notify(ctx context.Context, n Notification) error {
	// a stopped hub still has free backlog slots nobody drains
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- n:
		return nil
	default:
		return errors.New("websocket hub backlog full")
	}
}

// ServeWS upgrades the request. The optional orderId query parameter takes
// any order identifier and narrows the stream to that order.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &hubClient{
		id:      uuid.New().String(),
		orderID: strings.TrimSpace(r.URL.Query().Get("orderId")),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) readPump(c *hubClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// clients never send anything meaningful; reading drives pong handling
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
