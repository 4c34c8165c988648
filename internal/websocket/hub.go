package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

// Message types
const (
	MessageTypeScoreboardUpdate = "scoreboard_update"
	MessageTypeLatest           = "latest"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeError            = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts scoreboard updates.
// It remembers the last update it delivered so late joiners start from the
// current scoreboard.
type Hub struct {
	clients map[*Client]bool
	latest  []byte

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	upgrader       websocket.Upgrader
	sendBuffer     int
	maxMessageSize int64

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new Hub
func NewHub(cfg *config.WebSocketConfig, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	maxMessageSize := cfg.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = 1024
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		sendBuffer:     sendBuffer,
		maxMessageSize: maxMessageSize,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// originChecker accepts any origin when allowed is empty. Requests without an
// Origin header come from non-browser clients and are always accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origins[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := origins[strings.ToLower(origin)]
		return ok
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.latest != nil {
				client.queue(h.latest)
			}
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case data := <-h.broadcast:
			h.broadcastUpdate(data)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// Name identifies the hub in logs
func (h *Hub) Name() string {
	return "websocket"
}

// Publish queues a scoreboard update for every connected client
func (h *Hub) Publish(_ context.Context, snapshot domain.Snapshot) error {
	data, err := json.Marshal(Message{
		Type:      MessageTypeScoreboardUpdate,
		Data:      snapshot,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping scoreboard update", "snapshot_id", snapshot.ID)
	}
	return nil
}

func (h *Hub) broadcastUpdate(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = data
	for client := range h.clients {
		if !client.queue(data) {
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// latestUpdate returns the last scoreboard update delivered, or nil
func (h *Hub) latestUpdate() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
