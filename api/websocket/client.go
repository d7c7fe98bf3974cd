package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/validation"
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// mu guards serverID and closed. Sends on send hold it for reading so
	// the hub cannot close the channel underneath them.
	mu       sync.RWMutex
	serverID string
	closed   bool
}

type IncomingMessage struct {
	Type     string `json:"type"`
	ServerID string `json:"server_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, serverID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.settings.ClientBuffer),
		serverID: serverID,
	}
}

// ServerID is the server this client is filtered to, or "" for all.
func (c *Client) ServerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverID
}

// Wants reports whether a message about serverID should reach this client.
func (c *Client) Wants(serverID string) bool {
	filter := c.ServerID()
	return serverID == "" || filter == "" || filter == serverID
}

func (c *Client) setServerID(serverID string) {
	c.mu.Lock()
	c.serverID = serverID
	c.mu.Unlock()
}

func (c *Client) ReadPump() {
	settings := c.hub.settings
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.ServerID == "" {
			return
		}
		if err := validation.ValidateIdentifier(msg.ServerID); err != nil {
			c.queue(NewMessage(MessageTypeError, "", map[string]string{"error": err.Error()}).JSON())
			return
		}
		c.setServerID(msg.ServerID)
		logger.WithServer(msg.ServerID).Info("WebSocket client subscribed to server")
		c.sendConfirmation("subscribed", msg.ServerID)
	case "unsubscribe":
		old := c.ServerID()
		c.setServerID("")
		logger.Info("WebSocket client unsubscribed from server")
		c.sendConfirmation("unsubscribed", old)
	}
}

func (c *Client) sendConfirmation(action, serverID string) {
	c.queue(NewMessage(MessageTypeSubscription, serverID, SubscriptionData{Action: action}).JSON())
}

func (c *Client) queue(data []byte) {
	if !c.trySend(data) {
		logger.Warn("Client send channel full, dropping message")
	}
}

// trySend reports false only when the send buffer is full. Messages for a
// client the hub already closed are discarded.
func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// disconnect ends the client's write side and drops its connection so ReadPump
// returns. Only the hub calls it.
func (c *Client) disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

// SnapshotFunc returns the state a new client receives before any events.
type SnapshotFunc func(serverID string) interface{}

func ServeWebSocket(hub *Hub, snapshot SnapshotFunc) gin.HandlerFunc {
	settings := hub.settings
	upgrader := websocket.Upgrader{
		ReadBufferSize:  settings.ReadBufferSize,
		WriteBufferSize: settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		serverID := c.Query("server_id")
		if serverID != "" {
			if err := validation.ValidateIdentifier(serverID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if hub.ClientCount() >= settings.MaxConnections {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, serverID)
		if snapshot != nil {
			client.queue(NewMessage(MessageTypeSnapshot, serverID, snapshot(serverID)).JSON())
		}
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
