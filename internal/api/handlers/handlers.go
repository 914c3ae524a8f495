package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/calculator"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	User  *UserHandler
	Group *GroupHandler
	Order *OrderHandler
	Card  *CardHandler
	Chat  *ChatHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		User:  &UserHandler{userService: services.User, authService: services.Auth},
		Group: &GroupHandler{groupService: services.Group, permission: services.Permission},
		Order: &OrderHandler{orderService: services.Order},
		Card:  &CardHandler{cardService: services.Card},
		Chat:  &ChatHandler{chatService: services.Chat},
	}
}

// ============================================
// Error Mapping
// ============================================

// respondError maps a service error onto an HTTP status and the
// {"error", "code"} body.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAlreadyMember):
		status, code = http.StatusConflict, "already_member"
	case errors.Is(err, service.ErrOrderLocked):
		status, code = http.StatusConflict, "order_locked"
	case errors.Is(err, service.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrTransport):
		status, code = http.StatusBadGateway, "transport"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("unhandled error", "component", "http", "path", c.Request.URL.Path, "error", err)
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}

// badRequest reports a malformed body.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		Email:            u.Email,
		FullName:         u.FullName,
		DisplayName:      u.DisplayName,
		NeedsDisplayName: service.NeedsDisplayName(u),
	}
}

func toGroupResponse(g *repository.Group, isOwner bool) models.GroupResponse {
	members := make([]models.MemberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = models.MemberResponse{Email: m.Email, Name: m.Name, JoinedAt: m.JoinedAt}
	}
	return models.GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerEmail:  g.OwnerEmail,
		InviteCode:  g.InviteCode,
		Members:     members,
		IsOwner:     isOwner,
		CreatedAt:   g.CreatedAt,
	}
}

func toOrderResponse(v *service.OrderView) models.OrderResponse {
	o := v.Order
	return models.OrderResponse{
		ID:             o.ID,
		GroupID:        o.GroupID,
		Title:          o.Title,
		Deadline:       o.Deadline,
		Currency:       o.Currency,
		Notes:          o.Notes,
		Status:         o.Status,
		TotalValue:     calculator.Format(o.TotalValue),
		CreatedByEmail: o.CreatedByEmail,
		CreatedAt:      o.CreatedAt,
		CanAddCards:    v.CanAddCards,
		IsExpired:      v.IsExpired,
		CardCount:      v.CardCount,
	}
}

func toOrderCardResponse(card *repository.OrderCard) models.OrderCardResponse {
	var price *string
	if card.Price.Valid {
		p := calculator.Format(card.Price.Decimal)
		price = &p
	}
	return models.OrderCardResponse{
		ID:           card.ID,
		OrderID:      card.OrderID,
		GroupID:      card.GroupID,
		ScryfallID:   card.ScryfallID,
		CardName:     card.CardName,
		CardImage:    card.CardImage,
		SetName:      card.SetName,
		Price:        price,
		Quantity:     card.Quantity,
		LineTotal:    calculator.Format(calculator.LineTotal(card.Price, card.Quantity)),
		AddedByEmail: card.AddedByEmail,
		AddedByName:  card.AddedByName,
		CreatedAt:    card.CreatedAt,
	}
}

func toSummaryResponse(s calculator.Summary) models.SummaryResponse {
	contributors := make([]models.ContributionResponse, len(s.Contributors))
	for i, c := range s.Contributors {
		contributors[i] = models.ContributionResponse{
			Email:    c.Email,
			Name:     c.Name,
			Subtotal: calculator.Format(c.Subtotal),
			Cards:    c.Cards,
			Units:    c.Units,
		}
	}
	return models.SummaryResponse{
		Contributors: contributors,
		GrandTotal:   calculator.Format(s.GrandTotal),
		CardCount:    s.CardCount,
		UnitCount:    s.UnitCount,
	}
}

func toChatMessageResponse(m *repository.ChatMessage) models.ChatMessageResponse {
	return models.ChatMessageResponse{
		ID:          m.ID,
		GroupID:     m.GroupID,
		OrderID:     m.OrderID,
		SenderEmail: m.SenderEmail,
		SenderName:  m.SenderName,
		Message:     m.Message,
		CreatedDate: m.CreatedDate,
	}
}
