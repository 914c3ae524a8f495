package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService service.ChatService
}

// ============================================
// Group Channel
// ============================================

// ListGroupMessages returns the group channel
func (h *ChatHandler) ListGroupMessages(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	h.list(c, actor, service.ChannelKey{GroupID: c.Param("id")})
}

// SendGroupMessage posts to the group channel
func (h *ChatHandler) SendGroupMessage(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	h.send(c, actor, service.ChannelKey{GroupID: c.Param("id")})
}

// ============================================
// Order Channel
// ============================================

// ListOrderMessages returns an order's channel
func (h *ChatHandler) ListOrderMessages(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	key, err := h.chatService.ResolveOrderChannel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.list(c, actor, key)
}

// SendOrderMessage posts to an order's channel
func (h *ChatHandler) SendOrderMessage(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	key, err := h.chatService.ResolveOrderChannel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.send(c, actor, key)
}

// list serves one page, newest first. ?order=oldest reverses the page.
func (h *ChatHandler) list(c *gin.Context, actor service.Actor, key service.ChannelKey) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.MaxChatPage)))

	messages, err := h.chatService.List(c.Request.Context(), actor, key, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("order") == "oldest" {
		messages = service.Chronological(messages)
	}

	c.JSON(http.StatusOK, models.ChatListResponse{
		Messages:       toChatMessageResponses(messages),
		PollIntervalMS: h.chatService.PollInterval().Milliseconds(),
	})
}

func (h *ChatHandler) send(c *gin.Context, actor service.Actor, key service.ChannelKey) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	message, err := h.chatService.Send(c.Request.Context(), actor, key, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toChatMessageResponse(message))
}

func toChatMessageResponses(messages []*repository.ChatMessage) []models.ChatMessageResponse {
	out := make([]models.ChatMessageResponse, len(messages))
	for i, m := range messages {
		out[i] = toChatMessageResponse(m)
	}
	return out
}
