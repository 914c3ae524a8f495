package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

const (
	MaxMessageLength = 2000
	MaxChatPage      = 100
)

// ChannelKey names a chat channel. A nil OrderID is the group channel.
type ChannelKey struct {
	GroupID string
	OrderID *string
}

// ChatService defines chat operations
type ChatService interface {
	Send(ctx context.Context, actor Actor, key ChannelKey, text string) (*repository.ChatMessage, error)
	// List returns at most limit messages, newest first.
	List(ctx context.Context, actor Actor, key ChannelKey, limit int) ([]*repository.ChatMessage, error)
	// ResolveOrderChannel builds the channel key of an order.
	ResolveOrderChannel(ctx context.Context, actor Actor, orderID string) (ChannelKey, error)
	PollInterval() time.Duration
}

type chatService struct {
	chatRepo     repository.ChatRepository
	permission   PermissionService
	notify       *notifier
	clock        Clock
	pollInterval time.Duration
}

func NewChatService(
	chatRepo repository.ChatRepository,
	permission PermissionService,
	notify *notifier,
	clock Clock,
	pollInterval time.Duration,
) ChatService {
	return &chatService{
		chatRepo:     chatRepo,
		permission:   permission,
		notify:       notify,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

func (s *chatService) PollInterval() time.Duration {
	return s.pollInterval
}

// authorize checks membership and, for an order channel, that the order
// belongs to the group.
func (s *chatService) authorize(ctx context.Context, actor Actor, key ChannelKey) error {
	if key.OrderID == nil {
		_, err := s.permission.GroupForMember(ctx, actor, key.GroupID)
		return err
	}
	order, _, err := s.permission.OrderForMember(ctx, actor, *key.OrderID)
	if err != nil {
		return err
	}
	if order.GroupID != key.GroupID {
		return fmt.Errorf("%w: order %s is not in group %s", ErrNotFound, order.ID, key.GroupID)
	}
	return nil
}

func (s *chatService) ResolveOrderChannel(ctx context.Context, actor Actor, orderID string) (ChannelKey, error) {
	order, _, err := s.permission.OrderForMember(ctx, actor, orderID)
	if err != nil {
		return ChannelKey{}, err
	}
	id := order.ID
	return ChannelKey{GroupID: order.GroupID, OrderID: &id}, nil
}

func (s *chatService) Send(ctx context.Context, actor Actor, key ChannelKey, text string) (*repository.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message must be at most %d characters", ErrValidation, MaxMessageLength)
	}
	if err := s.authorize(ctx, actor, key); err != nil {
		return nil, err
	}

	message := &repository.ChatMessage{
		GroupID:     key.GroupID,
		OrderID:     key.OrderID,
		SenderEmail: NormalizeEmail(actor.Email),
		SenderName:  actor.Name,
		Message:     text,
		CreatedDate: s.clock().UTC(),
	}
	if err := s.chatRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: send message: %v", ErrTransport, err)
	}

	payload := map[string]interface{}{
		"id":           message.ID,
		"group_id":     message.GroupID,
		"order_id":     message.OrderID,
		"sender_email": message.SenderEmail,
		"sender_name":  message.SenderName,
		"message":      message.Message,
		"created_date": message.CreatedDate,
	}
	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastChatMessage(message.GroupID, message.OrderID, payload)
	}
	s.notify.publish(ctx, events.ChatMessageSent, payload)

	return message, nil
}

func (s *chatService) List(ctx context.Context, actor Actor, key ChannelKey, limit int) ([]*repository.ChatMessage, error) {
	if limit <= 0 || limit > MaxChatPage {
		limit = MaxChatPage
	}
	if err := s.authorize(ctx, actor, key); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListByChannel(ctx, key.GroupID, key.OrderID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrTransport, err)
	}
	return messages, nil
}

// Chronological returns a copy of a newest-first page in oldest-first order.
func Chronological(messages []*repository.ChatMessage) []*repository.ChatMessage {
	out := make([]*repository.ChatMessage, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}
