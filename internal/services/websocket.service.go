package services

import (
	"context"
	"sync"
	"time"

	"ramwatch/internal/logging"
	"ramwatch/internal/models"

	"github.com/gorilla/websocket"
)

// Stream message types.
const (
	MessageHistory = "history"
	MessageSample  = "sample"
	MessagePong    = "pong"
	MessageError   = "error"
)

// StreamMessage is a message sent over the live feed.
type StreamMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// SamplePayload is the data of a "sample" message.
type SamplePayload struct {
	Point    models.Point           `json:"point"`
	Snapshot *models.MemorySnapshot `json:"snapshot,omitempty"`
}

// ClientConnection represents a connected WebSocket client.
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan StreamMessage
}

// NewClientConnection creates a client with a buffered send queue.
func NewClientConnection(id string, conn *websocket.Conn) *ClientConnection {
	return &ClientConnection{
		ID:   id,
		Conn: conn,
		Send: make(chan StreamMessage, 64),
	}
}

// WebSocketHub fans new points out to connected clients. It implements
// Renderer so the sampling loop drives it like any other chart.
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan StreamMessage
	register   chan *ClientConnection
	unregister chan string
	done       chan struct{}
	mu         sync.RWMutex
	logger     logging.Logger
}

// NewWebSocketHub creates a hub. Call Run to start it.
func NewWebSocketHub(logger logging.Logger) *WebSocketHub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan StreamMessage, 16),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run manages the hub's event loop until ctx is cancelled, then closes every
// client's send queue.
func (h *WebSocketHub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.ID]; exists {
				close(old.Send)
			}
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("stream client connected", logging.String("client", client.ID), logging.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("stream client disconnected", logging.String("client", clientID), logging.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// slow client, drop this message for it
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Render queues the newest point of frame for broadcast. A full queue drops
// the message rather than delaying the sampling loop.
func (h *WebSocketHub) Render(_ context.Context, frame models.ChartFrame) error {
	if len(frame.Points) == 0 {
		return nil
	}
	msg := StreamMessage{
		Type:      MessageSample,
		Timestamp: time.Now(),
		Data: SamplePayload{
			Point:    frame.Points[len(frame.Points)-1],
			Snapshot: frame.Latest,
		},
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Debug("stream broadcast queue full, dropping sample")
	}
	return nil
}

// Register adds a client. It returns false if the hub has stopped.
func (h *WebSocketHub) Register(client *ClientConnection) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send queue.
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
