package controllers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"ramwatch/internal/logging"
	"ramwatch/internal/middleware"
	"ramwatch/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientMessage is what a stream client may send.
type clientMessage struct {
	Type string `json:"type"`
}

// StreamController upgrades authenticated clients to the live feed.
type StreamController struct {
	hub       *services.WebSocketHub
	auth      *services.AuthService
	history   *services.HistoryRecorder
	security  *middleware.SecurityLogger
	validator *middleware.InputValidator
	logger    logging.Logger
	upgrader  websocket.Upgrader
	nextID    atomic.Uint64
}

// NewStreamController creates the live feed controller.
func NewStreamController(hub *services.WebSocketHub, auth *services.AuthService, history *services.HistoryRecorder, security *middleware.SecurityLogger, logger logging.Logger) *StreamController {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StreamController{
		hub:       hub,
		auth:      auth,
		history:   history,
		security:  security,
		validator: middleware.NewInputValidator(),
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket handles incoming WebSocket connections. The token is
// taken from the token query parameter. The first message on the feed is
// the whole recorded series; every later one is a single new point.
func (sc *StreamController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		sc.security.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if !sc.validator.ValidateToken(token) {
		sc.security.LogFailedAuth(c.ClientIP(), "malformed token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	claims, err := sc.auth.ValidateToken(token)
	if err != nil {
		sc.security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if !sc.validator.ValidateClientName(claims.ClientName) {
		sc.security.LogFailedAuth(c.ClientIP(), "invalid client name in token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sc.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}

	clientID := fmt.Sprintf("%s-%s-%d", c.ClientIP(), claims.ClientName, sc.nextID.Add(1))
	client := services.NewClientConnection(clientID, ws)
	client.Send <- services.StreamMessage{
		Type:      services.MessageHistory,
		Timestamp: time.Now(),
		Data:      sc.history.Frame(),
	}

	if !sc.hub.Register(client) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		ws.Close()
		return
	}
	sc.security.LogStreamConnected(c.ClientIP(), claims.ClientName)

	replies := make(chan services.StreamMessage, 4)
	done := make(chan struct{})
	go sc.writePump(client, replies, done)
	go sc.readPump(client, replies, done, c.ClientIP())
}

// readPump reads messages from the WebSocket client until it disconnects,
// then unregisters it.
func (sc *StreamController) readPump(client *services.ClientConnection, replies chan<- services.StreamMessage, done chan struct{}, ip string) {
	defer func() {
		close(done)
		sc.hub.Unregister(client.ID)
		client.Conn.Close()
		sc.security.LogStreamDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Debug("websocket read error", logging.String("client", client.ID), logging.Err(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			select {
			case replies <- services.StreamMessage{Type: services.MessagePong, Timestamp: time.Now()}:
			default:
			}
		case "unsubscribe":
			return
		default:
			select {
			case replies <- services.StreamMessage{Type: services.MessageError, Timestamp: time.Now(), Error: "unknown message type"}:
			default:
			}
		}
	}
}

// writePump owns all writes to the connection. It stops when the hub closes
// the client's queue or the read side ends.
func (sc *StreamController) writePump(client *services.ClientConnection, replies <-chan services.StreamMessage, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	write := func(msg services.StreamMessage) bool {
		client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteJSON(msg); err != nil {
			sc.logger.Debug("websocket write error", logging.String("client", client.ID), logging.Err(err))
			return false
		}
		return true
	}

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(msg) {
				return
			}

		case msg := <-replies:
			if !write(msg) {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
