package websocket

import (
	"sync"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/config"
)

const (
	defaultBroadcastBuffer = 256
	defaultClientBuffer    = 64
	defaultMaxConnections  = 100
	defaultWriteTimeout    = 10 * time.Second
	defaultPongTimeout     = 60 * time.Second
	defaultMaxMessageSize  = 512
	defaultBufferSize      = 1024
)

// Settings are the connection limits shared by every client of a hub.
type Settings struct {
	MaxConnections  int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	ClientBuffer    int
	BroadcastBuffer int
}

// NewSettings fills anything cfg leaves unset with defaults. cfg may be nil.
func NewSettings(cfg *config.WebSocketConfig) Settings {
	s := Settings{
		MaxConnections:  defaultMaxConnections,
		WriteTimeout:    defaultWriteTimeout,
		PongTimeout:     defaultPongTimeout,
		MaxMessageSize:  defaultMaxMessageSize,
		ReadBufferSize:  defaultBufferSize,
		WriteBufferSize: defaultBufferSize,
		ClientBuffer:    defaultClientBuffer,
		BroadcastBuffer: defaultBroadcastBuffer,
	}
	if cfg != nil {
		if cfg.MaxConnections > 0 {
			s.MaxConnections = cfg.MaxConnections
		}
		if cfg.WriteTimeout > 0 {
			s.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.PongTimeout > 0 {
			s.PongTimeout = cfg.PongTimeout
		}
		if cfg.PingInterval > 0 {
			s.PingInterval = cfg.PingInterval
		}
		if cfg.MaxMessageSize > 0 {
			s.MaxMessageSize = cfg.MaxMessageSize
		}
		if cfg.ReadBufferSize > 0 {
			s.ReadBufferSize = cfg.ReadBufferSize
		}
		if cfg.WriteBufferSize > 0 {
			s.WriteBufferSize = cfg.WriteBufferSize
		}
		if cfg.ClientBuffer > 0 {
			s.ClientBuffer = cfg.ClientBuffer
		}
		if cfg.BroadcastBuffer > 0 {
			s.BroadcastBuffer = cfg.BroadcastBuffer
		}
	}
	// Pings must go out before the peer's pong deadline lapses.
	if s.PingInterval <= 0 || s.PingInterval >= s.PongTimeout {
		s.PingInterval = s.PongTimeout * 9 / 10
	}
	return s
}

type outbound struct {
	serverID string
	data     []byte
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	settings   Settings
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	settings := NewSettings(cfg)

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, settings.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   settings,
	}
}

func (h *Hub) Settings() Settings {
	return h.settings
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.disconnect()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.disconnect()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("WebSocket client disconnected (total: %d)", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver drops clients whose send buffer is full; they reconnect and resync.
func (h *Hub) deliver(msg outbound) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.Wants(msg.serverID) {
			continue
		}
		if !client.trySend(msg.data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range slow {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			client.disconnect()
		}
	}
	h.mu.Unlock()
	logger.Warnf("Dropped %d slow WebSocket clients", len(slow))
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends message to every client.
func (h *Hub) Broadcast(message []byte) {
	h.BroadcastToServer("", message)
}

// BroadcastToServer sends message to clients watching serverID and to
// clients with no filter. An empty serverID reaches everyone.
func (h *Hub) BroadcastToServer(serverID string, message []byte) {
	select {
	case h.broadcast <- outbound{serverID: serverID, data: message}:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.disconnect()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
