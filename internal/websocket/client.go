package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10
)

// Client is one subscriber to scoreboard updates
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage is a request from a subscriber: "ping" or "latest"
type ClientMessage struct {
	Type string `json:"type"`
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.sendBuffer),
		logger: logger.With("client_id", id),
	}
}

// readPump answers subscriber requests until the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		var request ClientMessage
		if err := json.Unmarshal(message, &request); err != nil {
			c.logger.Warn("invalid message format", "error", err)
			c.reply(MessageTypeError, map[string]string{"error": "invalid message format"})
			continue
		}
		c.handleRequest(request)
	}
}

func (c *Client) handleRequest(request ClientMessage) {
	switch request.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)

	case MessageTypeLatest:
		latest := c.hub.latestUpdate()
		if latest == nil {
			c.reply(MessageTypeError, map[string]string{"error": "no scoreboard published yet"})
			return
		}
		c.queue(latest)

	default:
		c.logger.Debug("unknown message type", "type", request.Type)
		c.reply(MessageTypeError, map[string]string{"error": "unknown message type " + request.Type})
	}
}

// writePump delivers queued updates and keeps the connection alive with pings.
// Every update is a complete JSON document, so each goes out as its own frame.
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", "error", err)
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

// queue hands data to the write pump without blocking; it reports false
// when the client is too far behind and the data was dropped.
func (c *Client) queue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// reply sends a message to this client only
func (c *Client) reply(messageType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: messageType, Data: data, Timestamp: time.Now()})
	if err != nil {
		return
	}
	c.queue(payload)
}

// ServeWs upgrades the request and subscribes the connection to scoreboard updates
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	client := NewClient(hub, conn, logger)
	hub.Register(client)

	go client.writePump()
	go client.readPump()

	logger.Debug("new websocket connection", "client_id", client.id)
}
