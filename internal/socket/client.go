// internal/socket/client.go
package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (4KB)
	maxMessageSize int64 = 4096

	// Time allowed for a room authorization lookup
	authorizeTimeout = 5 * time.Second
)

// RoomAuthorizer reports whether email may subscribe to room.
type RoomAuthorizer func(ctx context.Context, email, room string) bool

// ClientMessage represents an incoming message from a client
type ClientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room,omitempty"`
}

// GroupRoom is the room name of a group channel.
func GroupRoom(groupID string) string { return "group:" + groupID }

// OrderRoom is the room name of an order channel.
func OrderRoom(orderID string) string { return "order:" + orderID }

// ParseRoom splits a room name into its kind ("group" or "order") and id.
func ParseRoom(room string) (kind, id string, ok bool) {
	kind, id, found := strings.Cut(room, ":")
	if !found || id == "" || (kind != "group" && kind != "order") {
		return "", "", false
	}
	return kind, id, true
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "component", "ws_client", "email", c.Email, "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	switch msg.Action {
	case "join":
		if _, _, ok := ParseRoom(msg.Room); !ok {
			c.sendError("unknown room")
			return
		}
		if authorize := c.Hub.authorizer(); authorize != nil {
			ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
			allowed := authorize(ctx, c.Email, msg.Room)
			cancel()
			if !allowed {
				c.sendError("forbidden")
				return
			}
		}
		c.Hub.JoinRoom(c, msg.Room)
		c.sendAck("joined", msg.Room)

	case "leave":
		if msg.Room != "" {
			c.Hub.LeaveRoom(c, msg.Room)
			c.sendAck("left", msg.Room)
		}

	case "ping":
		c.lastPing = time.Now()
		c.sendPong()

	case "pong":
		c.lastPing = time.Now()

	default:
		c.sendError("unknown action")
	}
}

func (c *Client) sendAck(action, room string) {
	c.sendMessage(Message{
		Type: MessageAck,
		Payload: map[string]interface{}{
			"action": action,
			"room":   room,
		},
		Timestamp: time.Now(),
	})
}

func (c *Client) sendPong() {
	c.sendMessage(Message{
		Type: MessagePong,
		Payload: map[string]interface{}{
			"time": time.Now().Unix(),
		},
		Timestamp: time.Now(),
	})
}

func (c *Client) sendError(reason string) {
	c.sendMessage(Message{
		Type:      MessageError,
		Payload:   map[string]interface{}{"error": reason},
		Timestamp: time.Now(),
	})
}

func (c *Client) sendMessage(msg Message) {
	data, _ := json.Marshal(msg)

	select {
	case c.Send <- data:
	default:
		slog.Warn("client send buffer full", "component", "ws_client", "email", c.Email, "type", msg.Type)
	}
}
