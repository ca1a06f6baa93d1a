package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64

	channelPrefix = "realtime:citizen:"
)

// MessageType represents different types of real-time messages
type MessageType string

const (
	MessageTypeNotification MessageType = "notification"
	MessageTypeHeartbeat    MessageType = "heartbeat"
)

// Message represents a real-time message
type Message struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Observer is told when connections open and close
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Hub maintains the active websocket connections of citizens
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	upgrader websocket.Upgrader
	redis    *redis.Client
	observer Observer
	logger   *zap.Logger
}

// Client represents a WebSocket client connection
type Client struct {
	ID        string
	CitizenID uint
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
}

// Option configures a Hub
type Option func(*Hub)

// WithRedis fans pushes out through redis pub/sub so every instance
// delivers to its own connections
func WithRedis(client *redis.Client) Option {
	return func(h *Hub) { h.redis = client }
}

// WithObserver reports connection counts
func WithObserver(observer Observer) Option {
	return func(h *Hub) { h.observer = observer }
}

// NewHub creates a new WebSocket hub
func NewHub(readBufferSize, writeBufferSize int, logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ErrHubStopped is returned by Serve once Run has returned
var ErrHubStopped = errors.New("realtime hub stopped")

// Run registers and unregisters clients until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.redis != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			if h.observer != nil {
				h.observer.ConnectionOpened()
			}
			h.logger.Debug("Client connected",
				zap.String("client_id", client.ID),
				zap.Uint("citizen_id", client.CitizenID))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if h.observer != nil {
					h.observer.ConnectionClosed()
				}
			}
			h.mutex.Unlock()
			h.logger.Debug("Client disconnected", zap.String("client_id", client.ID))
		}
	}
}

// Serve upgrades the connection and attaches it to citizenID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, citizenID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "failed to upgrade connection")
	}

	client := &Client{
		ID:        uuid.NewString(),
		CitizenID: citizenID,
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// PushToCitizen delivers message to every connection of citizenID
func (h *Hub) PushToCitizen(ctx context.Context, citizenID uint, message *Message) error {
	message.Timestamp = time.Now().UTC()
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	if h.redis != nil {
		channel := channelPrefix + strconv.FormatUint(uint64(citizenID), 10)
		return errors.Wrap(h.redis.Publish(ctx, channel, data).Err(), "failed to publish message")
	}

	h.deliver(citizenID, data)
	return nil
}

// deliver writes to local clients, dropping the message for clients whose
// buffer is full
func (h *Hub) deliver(citizenID uint, data []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.CitizenID != citizenID {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Dropping message for slow client", zap.String("client_id", client.ID))
		}
	}
}

// subscribe forwards redis messages to local clients
func (h *Hub) subscribe(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, channelPrefix), 10, 64)
			if err != nil {
				h.logger.Warn("Ignoring message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			h.deliver(uint(id), []byte(msg.Payload))
		}
	}
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ClientsFor returns the number of connections held by citizenID
func (h *Hub) ClientsFor(citizenID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for client := range h.clients {
		if client.CitizenID == citizenID {
			count++
		}
	}
	return count
}

// readPump drains the connection so pongs and close frames are processed
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
