// internal/socket/handler.go
package socket

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenVerifier resolves a bearer token to the caller's email.
type TokenVerifier func(token string) (email string, err error)

// Handler handles WebSocket connections
type Handler struct {
	Hub      *Hub
	verify   TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. allowedOrigins empty or
// containing "*" accepts any origin.
func NewHandler(hub *Hub, verify TokenVerifier, allowedOrigins []string) *Handler {
	return &Handler{
		Hub:    hub,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// HandleWebSocket handles WebSocket upgrade requests. The token comes from
// the query string because browser WebSocket clients cannot set headers.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided", "code": "unauthenticated"})
		return
	}

	email, err := h.verify(tokenString)
	if err != nil || email == "" {
		slog.Warn("websocket token rejected", "component", "ws_handler", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "code": "unauthenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "component", "ws_handler", "error", err)
		return
	}

	client := NewClient(h.Hub, email, conn)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, email string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Email:    email,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan []byte, 256),
		Rooms:    make(map[string]bool),
		lastPing: time.Now(),
	}
}
