// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Chat messages
	MessageChatMessage MessageType = "chat_message"

	// Order messages
	MessageOrderCreated        MessageType = "order_created"
	MessageOrderUpdated        MessageType = "order_updated"
	MessageOrderDeleted        MessageType = "order_deleted"
	MessageOrderDeadlinePassed MessageType = "order_deadline_passed"

	// Card messages
	MessageCardAdded   MessageType = "card_added"
	MessageCardRemoved MessageType = "card_removed"

	// Group messages
	MessageMemberJoined MessageType = "member_joined"
	MessageGroupDeleted MessageType = "group_deleted"

	// System messages
	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	Email    string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool // Subscribed rooms (group:id, order:id)
	mu       sync.Mutex
	lastPing time.Time
}

// Hub maintains the set of active clients and broadcasts messages to rooms
type Hub struct {
	clients map[*Client]bool

	// Clients indexed by room for broadcasting
	roomClients map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	roomBroadcast chan *RoomMessage
	done          chan struct{}
	stopOnce      sync.Once

	// authorize decides whether an email may join a room
	authorize RoomAuthorizer

	log *slog.Logger
	mu  sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // Email to exclude from broadcast
}

// NewHub creates a new Hub. A nil authorizer lets every client join any room.
func NewHub(authorize RoomAuthorizer) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		roomBroadcast: make(chan *RoomMessage, 256),
		done:          make(chan struct{}),
		authorize:     authorize,
		log:           slog.With("component", "ws_hub"),
	}
}

// SetAuthorizer replaces the room authorizer. Call before Run.
func (h *Hub) SetAuthorizer(authorize RoomAuthorizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authorize = authorize
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.log.Info("websocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case <-pingTicker.C:
			h.pingClients()

		case <-h.done:
			h.log.Info("websocket hub stopped")
			return
		}
	}
}

// Stop ends the run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.log.Debug("client registered", "email", client.Email, "client_id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	client.mu.Lock()
	for room := range client.Rooms {
		if clients, ok := h.roomClients[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	client.mu.Unlock()

	close(client.Send)
	h.log.Debug("client disconnected", "email", client.Email, "client_id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.roomClients[rm.Room]
	if !ok {
		return
	}

	sent := 0
	for client := range clients {
		if rm.Exclude != "" && client.Email == rm.Exclude {
			continue
		}
		select {
		case client.Send <- rm.Message:
			sent++
		default:
			go h.drop(client)
		}
	}
	h.log.Debug("broadcast to room", "room", rm.Room, "sent", sent)
}

func (h *Hub) pingClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go h.drop(client)
		}
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ============================================
// Public Methods for Room Management
// ============================================

// Register hands a client to the run loop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.drop(client)
}

// JoinRoom adds a client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true

	h.log.Debug("client joined room", "email", client.Email, "room", room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}

	h.log.Debug("client left room", "email", client.Email, "room", room)
}

// ============================================
// Public Methods for Sending Messages
// ============================================

// SendToRoom broadcasts a message to all clients in a room
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeEmail string) {
	data, err := json.Marshal(Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.log.Error("error marshaling message", "error", err)
		return
	}

	select {
	case h.roomBroadcast <- &RoomMessage{Room: room, Message: data, Exclude: excludeEmail}:
	case <-h.done:
	default:
		h.log.Warn("room broadcast queue full, dropping message", "room", room, "type", msgType)
	}
}

// ============================================
// Query Methods
// ============================================

// GetRoomClients returns the number of clients in a room
func (h *Hub) GetRoomClients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.roomClients[room]; ok {
		return len(clients)
	}
	return 0
}

// GetConnectedClientsCount returns total connected clients
func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) authorizer() RoomAuthorizer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.authorize
}
