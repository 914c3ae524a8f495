package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/types"
)

// Column limits: money is NUMERIC(12,2) and quantities are INTEGER.
var MaxMoney = decimal.RequireFromString("9999999999.99")

const MaxQuantity = math.MaxInt32

// ============================================
// Order Service
// ============================================

// CreateOrderInput carries the fields of a new order.
type CreateOrderInput struct {
	Title    string
	Deadline *time.Time
	Currency string
	Notes    *string
}

// OrderView is an order with the fields derived at read time.
type OrderView struct {
	Order       *repository.Order
	CanAddCards bool
	IsExpired   bool
	CardCount   int
}

type OrderService interface {
	Create(ctx context.Context, actor Actor, groupID string, input CreateOrderInput) (*OrderView, error)
	Get(ctx context.Context, actor Actor, orderID string) (*OrderView, error)
	ListByGroup(ctx context.Context, actor Actor, groupID string) ([]*OrderView, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID, status string) (*OrderView, error)
	SetTotalValue(ctx context.Context, actor Actor, orderID string, amount decimal.Decimal) (*OrderView, error)
	Delete(ctx context.Context, actor Actor, orderID string) error
}

// CanAddCards reports whether an order accepts card changes at now. The
// deadline instant itself is still open.
func CanAddCards(order *repository.Order, now time.Time) bool {
	return order.Status == types.OrderOpen && !now.After(order.Deadline)
}

// IsExpired reports whether the deadline has passed.
func IsExpired(order *repository.Order, now time.Time) bool {
	return now.After(order.Deadline)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	cardRepo   repository.OrderCardRepository
	permission PermissionService
	cascade    CascadeService
	notify     *notifier
	clock      Clock
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cardRepo repository.OrderCardRepository,
	permission PermissionService,
	cascade CascadeService,
	notify *notifier,
	clock Clock,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		cardRepo:   cardRepo,
		permission: permission,
		cascade:    cascade,
		notify:     notify,
		clock:      clock,
	}
}

func (s *orderService) view(order *repository.Order, cardCount int) *OrderView {
	now := s.clock()
	return &OrderView{
		Order:       order,
		CanAddCards: CanAddCards(order, now),
		IsExpired:   IsExpired(order, now),
		CardCount:   cardCount,
	}
}

func (s *orderService) Create(ctx context.Context, actor Actor, groupID string, input CreateOrderInput) (*OrderView, error) {
	group, err := s.permission.GroupForMember(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Deadline == nil || input.Deadline.IsZero() {
		return nil, fmt.Errorf("%w: deadline is required", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = types.CurrencyUSD
	}
	if !types.IsValidCurrency(currency) {
		return nil, fmt.Errorf("%w: currency must be one of %s", ErrValidation, strings.Join(types.ValidCurrencies(), ", "))
	}
	notes := input.Notes
	if notes != nil && strings.TrimSpace(*notes) == "" {
		notes = nil
	}

	order := &repository.Order{
		GroupID:        group.ID,
		Title:          title,
		Deadline:       input.Deadline.UTC(),
		Currency:       currency,
		Notes:          notes,
		Status:         types.OrderOpen,
		TotalValue:     decimal.Zero,
		CreatedByEmail: NormalizeEmail(actor.Email),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrTransport, err)
	}

	payload := orderPayload(order)
	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastOrderCreated(group.ID, payload, order.CreatedByEmail)
	}
	s.notify.publish(ctx, events.OrderCreated, payload)

	return s.view(order, 0), nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, orderID string) (*OrderView, error) {
	order, _, err := s.permission.OrderForMember(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	counts, err := s.cardRepo.CountByOrders(ctx, []string{order.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: count cards: %v", ErrTransport, err)
	}
	return s.view(order, counts[order.ID]), nil
}

func (s *orderService) ListByGroup(ctx context.Context, actor Actor, groupID string) ([]*OrderView, error) {
	group, err := s.permission.GroupForMember(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", ErrTransport, err)
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	counts, err := s.cardRepo.CountByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: count cards: %v", ErrTransport, err)
	}

	views := make([]*OrderView, len(orders))
	for i, o := range orders {
		views[i] = s.view(o, counts[o.ID])
	}
	return views, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, orderID, status string) (*OrderView, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !types.IsValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: status must be one of %s", ErrValidation, strings.Join(types.ValidOrderStatuses(), ", "))
	}

	order, _, err := s.permission.OrderForOwner(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, status); err != nil {
		return nil, fmt.Errorf("%w: update status: %v", ErrTransport, err)
	}
	order.Status = status

	payload := orderPayload(order)
	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastOrderUpdated(order.GroupID, order.ID, payload, []string{"status"}, NormalizeEmail(actor.Email))
	}
	s.notify.publish(ctx, events.OrderStatusChanged, map[string]interface{}{
		"order_id": order.ID,
		"group_id": order.GroupID,
		"from":     previous,
		"to":       status,
	})

	return s.Get(ctx, actor, order.ID)
}

func (s *orderService) SetTotalValue(ctx context.Context, actor Actor, orderID string, amount decimal.Decimal) (*OrderView, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: total_value must be zero or greater", ErrValidation)
	}
	if amount.Round(2).GreaterThan(MaxMoney) {
		return nil, fmt.Errorf("%w: total_value must be at most %s", ErrValidation, MaxMoney.StringFixed(2))
	}

	order, _, err := s.permission.OrderForOwner(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	amount = amount.Round(2)
	if err := s.orderRepo.UpdateTotalValue(ctx, order.ID, amount); err != nil {
		return nil, fmt.Errorf("%w: update total value: %v", ErrTransport, err)
	}
	order.TotalValue = amount

	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastOrderUpdated(order.GroupID, order.ID, orderPayload(order), []string{"total_value"}, NormalizeEmail(actor.Email))
	}

	return s.Get(ctx, actor, order.ID)
}

func (s *orderService) Delete(ctx context.Context, actor Actor, orderID string) error {
	order, _, err := s.permission.OrderForOwner(ctx, actor, orderID)
	if err != nil {
		return err
	}
	return s.cascade.DeleteOrder(ctx, actor, order)
}

func orderPayload(o *repository.Order) map[string]interface{} {
	return map[string]interface{}{
		"id":          o.ID,
		"group_id":    o.GroupID,
		"title":       o.Title,
		"deadline":    o.Deadline,
		"currency":    o.Currency,
		"status":      o.Status,
		"total_value": o.TotalValue.StringFixed(2),
	}
}
