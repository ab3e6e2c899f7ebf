package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	sendBufferSize      = 64
	broadcastBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens gate access, not origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of connected monitors and broadcasts turn events to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Events waiting to be broadcast.
	broadcast chan entities.TurnEvent

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns.
	done chan struct{}

	actor     string
	validator *MessageValidator
	logger    *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(actor string, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan entities.TurnEvent, broadcastBufferSize),
		done:       make(chan struct{}),
		actor:      actor,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Monitor registered", zap.String("subject", client.subject))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("Monitor unregistered", zap.String("subject", client.subject))

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event entities.TurnEvent) {
	payload, err := json.Marshal(CreateEventMessage(event))
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if !client.wants(event.Type) {
			continue
		}
		if !client.offer(WriteData{Type: websocket.TextMessage, Payload: payload}) {
			delete(h.clients, client)
			client.close()
			h.logger.Warn("Dropping slow monitor", zap.String("subject", client.subject))
		}
	}
}

// Broadcast queues an event for every monitor. It never blocks.
func (h *Hub) Broadcast(event entities.TurnEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event", zap.String("type", string(event.Type)))
	}
}

// ClientCount returns the number of connected monitors
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Token subject of the monitor
	subject string

	// Event types the monitor asked for; empty means all
	filter map[entities.TurnEventType]bool
	closed bool
	mutex  sync.Mutex

	logger *zap.Logger
}

// offer queues a frame without blocking. It reports false when the buffer is
// full; frames for a closed client are discarded.
func (c *Client) offer(w WriteData) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- w:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) wants(t entities.TurnEventType) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.filter) == 0 || c.filter[t]
}

func (c *Client) setFilter(types []entities.TurnEventType) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.filter = make(map[entities.TurnEventType]bool, len(types))
	for _, t := range types {
		c.filter[t] = true
	}
}

// HandleWebSocket upgrades an authenticated request and attaches the
// monitor to the hub
func HandleWebSocket(hub *Hub, c echo.Context, subject string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}
	hub.Serve(conn, subject)
	return nil
}

// Serve registers an established connection and starts its pumps
func (h *Hub) Serve(conn *websocket.Conn, subject string) {
	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan WriteData, sendBufferSize),
		subject: subject,
		logger:  h.logger,
	}

	client.queue(CreateHelloMessage(h.actor, subject))
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

// queue sends a control message to this client only
func (c *Client) queue(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	if !c.offer(WriteData{Type: websocket.TextMessage, Payload: payload}) {
		c.logger.Warn("Send buffer full, dropping reply", zap.String("subject", c.subject))
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}
		c.processMessage(message)
	}
}

// processMessage handles a control message from the monitor
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.queue(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *PingMessage:
		c.queue(CreatePongMessage(m.Data))
	case *SubscribeMessage:
		c.setFilter(m.Events)
		c.logger.Debug("Monitor subscription changed",
			zap.String("subject", c.subject),
			zap.Int("eventTypes", len(m.Events)))
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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
