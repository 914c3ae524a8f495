package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/calculator"
	"github.com/Marga-Ghale/cardpool-backend/internal/catalog"
	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

// ============================================
// Card Service
// ============================================

// SearchResult is the outcome of a debounced catalog search. Superseded is
// set when a newer search from the same session replaced this one.
type SearchResult struct {
	Cards      []catalog.Card
	Superseded bool
}

// AddCardInput is a selection from the catalog plus the buyer's choices.
type AddCardInput struct {
	ScryfallID string
	CardName   string
	CardImage  string
	SetName    string
	Price      *decimal.Decimal
	Quantity   *int
}

// CardList is the cards of an order with their aggregate.
type CardList struct {
	Order       *repository.Order
	Cards       []*repository.OrderCard
	Summary     calculator.Summary
	CanAddCards bool
}

type CardService interface {
	Search(ctx context.Context, sessionKey, query string) (*SearchResult, error)
	Add(ctx context.Context, actor Actor, orderID string, input AddCardInput) (*repository.OrderCard, error)
	List(ctx context.Context, actor Actor, orderID string) (*CardList, error)
	Remove(ctx context.Context, actor Actor, cardID string) error
}

type cardService struct {
	cardRepo   repository.OrderCardRepository
	permission PermissionService
	lookup     catalog.Lookup
	debouncer  *catalog.Debouncer
	notify     *notifier
	metrics    *metrics.Metrics
	clock      Clock
	log        *slog.Logger
}

func NewCardService(
	cardRepo repository.OrderCardRepository,
	permission PermissionService,
	lookup catalog.Lookup,
	debouncer *catalog.Debouncer,
	notify *notifier,
	m *metrics.Metrics,
	clock Clock,
) CardService {
	return &cardService{
		cardRepo:   cardRepo,
		permission: permission,
		lookup:     lookup,
		debouncer:  debouncer,
		notify:     notify,
		metrics:    m,
		clock:      clock,
		log:        slog.With("component", "cards"),
	}
}

func (s *cardService) Search(ctx context.Context, sessionKey, query string) (*SearchResult, error) {
	empty := &SearchResult{Cards: []catalog.Card{}}

	query = strings.TrimSpace(query)
	if len([]rune(query)) < catalog.MinQueryLength {
		s.metrics.CatalogSearch("short")
		return empty, nil
	}
	if s.lookup == nil {
		s.metrics.CatalogSearch("disabled")
		return empty, nil
	}

	if s.debouncer != nil {
		latest, err := s.debouncer.Wait(ctx, NormalizeEmail(sessionKey))
		if err != nil {
			return nil, err
		}
		if !latest {
			s.metrics.CatalogSearch("superseded")
			empty.Superseded = true
			return empty, nil
		}
	}

	cards, err := s.lookup.Search(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.log.Warn("catalog search failed", "query", query, "error", err)
		s.metrics.CatalogSearch("error")
		return empty, nil
	}
	if len(cards) > catalog.MaxResults {
		cards = cards[:catalog.MaxResults]
	}

	s.metrics.CatalogSearch("ok")
	return &SearchResult{Cards: cards}, nil
}

func (s *cardService) Add(ctx context.Context, actor Actor, orderID string, input AddCardInput) (*repository.OrderCard, error) {
	order, _, err := s.permission.OrderForMember(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !CanAddCards(order, s.clock()) {
		return nil, ErrOrderLocked
	}

	scryfallID := strings.TrimSpace(input.ScryfallID)
	if scryfallID == "" {
		return nil, fmt.Errorf("%w: scryfall_id is required", ErrValidation)
	}
	cardName := strings.TrimSpace(input.CardName)
	if cardName == "" {
		return nil, fmt.Errorf("%w: card_name is required", ErrValidation)
	}

	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be at most %d", ErrValidation, MaxQuantity)
	}

	var price decimal.NullDecimal
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be zero or greater", ErrValidation)
		}
		if input.Price.Round(2).GreaterThan(MaxMoney) {
			return nil, fmt.Errorf("%w: price must be at most %s", ErrValidation, MaxMoney.StringFixed(2))
		}
		price = decimal.NewNullDecimal(input.Price.Round(2))
	}

	card := &repository.OrderCard{
		OrderID:      order.ID,
		GroupID:      order.GroupID,
		ScryfallID:   scryfallID,
		CardName:     cardName,
		CardImage:    strings.TrimSpace(input.CardImage),
		SetName:      strings.TrimSpace(input.SetName),
		Price:        price,
		Quantity:     &quantity,
		AddedByEmail: NormalizeEmail(actor.Email),
		AddedByName:  actor.Name,
	}
	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("%w: add card: %v", ErrTransport, err)
	}

	payload := map[string]interface{}{
		"id":             card.ID,
		"order_id":       card.OrderID,
		"card_name":      card.CardName,
		"quantity":       quantity,
		"added_by_email": card.AddedByEmail,
		"added_by_name":  card.AddedByName,
	}
	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastCardAdded(order.ID, payload, card.AddedByEmail)
	}
	s.notify.publish(ctx, events.CardAdded, payload)

	return card, nil
}

func (s *cardService) List(ctx context.Context, actor Actor, orderID string) (*CardList, error) {
	order, _, err := s.permission.OrderForMember(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	cards, err := s.cardRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list cards: %v", ErrTransport, err)
	}

	return &CardList{
		Order:       order,
		Cards:       cards,
		Summary:     calculator.Aggregate(cards),
		CanAddCards: CanAddCards(order, s.clock()),
	}, nil
}

func (s *cardService) Remove(ctx context.Context, actor Actor, cardID string) error {
	card, err := s.cardRepo.FindByID(ctx, cardID)
	if err != nil {
		return fmt.Errorf("%w: find card: %v", ErrTransport, err)
	}
	if card == nil {
		return fmt.Errorf("%w: card %s", ErrNotFound, cardID)
	}

	order, _, err := s.permission.OrderForMember(ctx, actor, card.OrderID)
	if err != nil {
		return err
	}
	if card.AddedByEmail != NormalizeEmail(actor.Email) {
		return fmt.Errorf("%w: only the member who added a card can remove it", ErrForbidden)
	}
	if !CanAddCards(order, s.clock()) {
		return ErrOrderLocked
	}

	if err := s.cardRepo.Delete(ctx, card.ID); err != nil {
		return fmt.Errorf("%w: remove card: %v", ErrTransport, err)
	}

	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastCardRemoved(order.ID, card.ID, card.AddedByEmail)
	}
	s.notify.publish(ctx, events.CardRemoved, map[string]interface{}{
		"id":       card.ID,
		"order_id": card.OrderID,
		"group_id": card.GroupID,
	})
	return nil
}
