package socket

import (
	"time"
)

// Broadcaster provides high-level methods for broadcasting events
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ============================================
// Chat Broadcasting
// ============================================

// BroadcastChatMessage pushes a new message to the room of its channel.
func (b *Broadcaster) BroadcastChatMessage(groupID string, orderID *string, message map[string]interface{}) {
	room := GroupRoom(groupID)
	if orderID != nil {
		room = OrderRoom(*orderID)
	}
	b.hub.SendToRoom(room, MessageChatMessage, message, "")
}

// ============================================
// Order Broadcasting
// ============================================

// BroadcastOrderCreated notifies group members of a new order
func (b *Broadcaster) BroadcastOrderCreated(groupID string, order map[string]interface{}, excludeEmail string) {
	b.hub.SendToRoom(GroupRoom(groupID), MessageOrderCreated, order, excludeEmail)
}

// BroadcastOrderUpdated notifies both the group and the order room
func (b *Broadcaster) BroadcastOrderUpdated(groupID, orderID string, order map[string]interface{}, changes []string, excludeEmail string) {
	payload := map[string]interface{}{
		"order":          order,
		"changed_fields": changes,
		"changed_by":     excludeEmail,
	}
	b.hub.SendToRoom(GroupRoom(groupID), MessageOrderUpdated, payload, excludeEmail)
	b.hub.SendToRoom(OrderRoom(orderID), MessageOrderUpdated, payload, excludeEmail)
}

// BroadcastOrderDeleted notifies both the group and the order room
func (b *Broadcaster) BroadcastOrderDeleted(groupID, orderID string, excludeEmail string) {
	payload := map[string]interface{}{
		"order_id": orderID,
		"group_id": groupID,
	}
	b.hub.SendToRoom(GroupRoom(groupID), MessageOrderDeleted, payload, excludeEmail)
	b.hub.SendToRoom(OrderRoom(orderID), MessageOrderDeleted, payload, excludeEmail)
}

// BroadcastDeadlinePassed announces that an open order stopped accepting cards
func (b *Broadcaster) BroadcastDeadlinePassed(groupID, orderID, title string, deadline time.Time) {
	payload := map[string]interface{}{
		"order_id": orderID,
		"group_id": groupID,
		"title":    title,
		"deadline": deadline,
	}
	b.hub.SendToRoom(OrderRoom(orderID), MessageOrderDeadlinePassed, payload, "")
	b.hub.SendToRoom(GroupRoom(groupID), MessageOrderDeadlinePassed, payload, "")
}

// ============================================
// Card Broadcasting
// ============================================

// BroadcastCardAdded notifies the order room of a new card
func (b *Broadcaster) BroadcastCardAdded(orderID string, card map[string]interface{}, excludeEmail string) {
	b.hub.SendToRoom(OrderRoom(orderID), MessageCardAdded, card, excludeEmail)
}

// BroadcastCardRemoved notifies the order room of a removed card
func (b *Broadcaster) BroadcastCardRemoved(orderID, cardID string, excludeEmail string) {
	b.hub.SendToRoom(OrderRoom(orderID), MessageCardRemoved, map[string]interface{}{
		"order_id": orderID,
		"card_id":  cardID,
	}, excludeEmail)
}

// ============================================
// Group Broadcasting
// ============================================

// BroadcastMemberJoined notifies group members of a new member
func (b *Broadcaster) BroadcastMemberJoined(groupID string, member map[string]interface{}, excludeEmail string) {
	b.hub.SendToRoom(GroupRoom(groupID), MessageMemberJoined, member, excludeEmail)
}

// BroadcastGroupDeleted notifies group members that the group is gone
func (b *Broadcaster) BroadcastGroupDeleted(groupID string, excludeEmail string) {
	b.hub.SendToRoom(GroupRoom(groupID), MessageGroupDeleted, map[string]interface{}{
		"group_id": groupID,
	}, excludeEmail)
}
