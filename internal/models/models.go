package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/catalog"
)

// ============================================
// User DTOs
// ============================================

type UserResponse struct {
	Email            string  `json:"email"`
	FullName         string  `json:"full_name"`
	DisplayName      *string `json:"display_name"`
	NeedsDisplayName bool    `json:"needs_display_name"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

type DevTokenRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// ============================================
// Group DTOs
// ============================================

type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

type InviteEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

type MemberResponse struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

type GroupResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	OwnerEmail  string           `json:"owner_email"`
	InviteCode  string           `json:"invite_code"`
	Members     []MemberResponse `json:"members"`
	IsOwner     bool             `json:"is_owner"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ============================================
// Order DTOs
// ============================================

type CreateOrderRequest struct {
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline"`
	Currency string     `json:"currency"`
	Notes    *string    `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetTotalValueRequest struct {
	TotalValue *decimal.Decimal `json:"total_value" binding:"required"`
}

type OrderResponse struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	Title          string    `json:"title"`
	Deadline       time.Time `json:"deadline"`
	Currency       string    `json:"currency"`
	Notes          *string   `json:"notes"`
	Status         string    `json:"status"`
	TotalValue     string    `json:"total_value"`
	CreatedByEmail string    `json:"created_by_email"`
	CreatedAt      time.Time `json:"created_at"`
	CanAddCards    bool      `json:"can_add_cards"`
	IsExpired      bool      `json:"is_expired"`
	CardCount      int       `json:"card_count"`
}

// ============================================
// Card DTOs
// ============================================

type AddCardRequest struct {
	ScryfallID string           `json:"scryfall_id"`
	CardName   string           `json:"card_name"`
	CardImage  string           `json:"card_image"`
	SetName    string           `json:"set_name"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Quantity   *int             `json:"quantity,omitempty"`
}

type OrderCardResponse struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	GroupID      string    `json:"group_id"`
	ScryfallID   string    `json:"scryfall_id"`
	CardName     string    `json:"card_name"`
	CardImage    string    `json:"card_image"`
	SetName      string    `json:"set_name"`
	Price        *string   `json:"price"`
	Quantity     *int      `json:"quantity"`
	LineTotal    string    `json:"line_total"`
	AddedByEmail string    `json:"added_by_email"`
	AddedByName  string    `json:"added_by_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type ContributionResponse struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Subtotal string `json:"subtotal"`
	Cards    int    `json:"cards"`
	Units    int    `json:"units"`
}

type SummaryResponse struct {
	Contributors []ContributionResponse `json:"contributors"`
	GrandTotal   string                 `json:"grand_total"`
	CardCount    int                    `json:"card_count"`
	UnitCount    int                    `json:"unit_count"`
}

type CardListResponse struct {
	Cards       []OrderCardResponse `json:"cards"`
	Summary     SummaryResponse     `json:"summary"`
	Currency    string              `json:"currency"`
	CanAddCards bool                `json:"can_add_cards"`
}

type CatalogSearchResponse struct {
	Cards      []catalog.Card `json:"cards"`
	Superseded bool           `json:"superseded"`
}

// ============================================
// Chat DTOs
// ============================================

type SendMessageRequest struct {
	Message string `json:"message"`
}

type ChatMessageResponse struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	OrderID     *string   `json:"order_id"`
	SenderEmail string    `json:"sender_email"`
	SenderName  string    `json:"sender_name"`
	Message     string    `json:"message"`
	CreatedDate time.Time `json:"created_date"`
}

type ChatListResponse struct {
	Messages       []ChatMessageResponse `json:"messages"`
	PollIntervalMS int64                 `json:"poll_interval_ms"`
}
