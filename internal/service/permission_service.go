package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
)

// PermissionService answers owner and member questions and loads entities
// on behalf of an actor, failing with ErrNotFound or ErrForbidden.
type PermissionService interface {
	IsOwner(actor Actor, group *repository.Group) bool
	IsMember(actor Actor, group *repository.Group) bool

	GroupForMember(ctx context.Context, actor Actor, groupID string) (*repository.Group, error)
	GroupForOwner(ctx context.Context, actor Actor, groupID string) (*repository.Group, error)
	OrderForMember(ctx context.Context, actor Actor, orderID string) (*repository.Order, *repository.Group, error)
	OrderForOwner(ctx context.Context, actor Actor, orderID string) (*repository.Order, *repository.Group, error)

	// CanJoinRoom authorizes websocket subscriptions to group:{id} and
	// order:{id} rooms.
	CanJoinRoom(ctx context.Context, email, room string) bool
}

type permissionService struct {
	groupRepo repository.GroupRepository
	orderRepo repository.OrderRepository
}

func NewPermissionService(groupRepo repository.GroupRepository, orderRepo repository.OrderRepository) PermissionService {
	return &permissionService{groupRepo: groupRepo, orderRepo: orderRepo}
}

func (s *permissionService) IsOwner(actor Actor, group *repository.Group) bool {
	return group != nil && group.OwnerEmail == NormalizeEmail(actor.Email)
}

func (s *permissionService) IsMember(actor Actor, group *repository.Group) bool {
	return s.IsOwner(actor, group) || (group != nil && group.HasMember(NormalizeEmail(actor.Email)))
}

func (s *permissionService) loadGroup(ctx context.Context, groupID string) (*repository.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: find group: %v", ErrTransport, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	return group, nil
}

func (s *permissionService) GroupForMember(ctx context.Context, actor Actor, groupID string) (*repository.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !s.IsMember(actor, group) {
		return nil, fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}
	return group, nil
}

func (s *permissionService) GroupForOwner(ctx context.Context, actor Actor, groupID string) (*repository.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !s.IsOwner(actor, group) {
		return nil, fmt.Errorf("%w: only the group owner can do this", ErrForbidden)
	}
	return group, nil
}

func (s *permissionService) loadOrder(ctx context.Context, orderID string) (*repository.Order, *repository.Group, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: find order: %v", ErrTransport, err)
	}
	if order == nil {
		return nil, nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	group, err := s.loadGroup(ctx, order.GroupID)
	if err != nil {
		return nil, nil, err
	}
	return order, group, nil
}

func (s *permissionService) OrderForMember(ctx context.Context, actor Actor, orderID string) (*repository.Order, *repository.Group, error) {
	order, group, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !s.IsMember(actor, group) {
		return nil, nil, fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}
	return order, group, nil
}

func (s *permissionService) OrderForOwner(ctx context.Context, actor Actor, orderID string) (*repository.Order, *repository.Group, error) {
	order, group, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !s.IsOwner(actor, group) {
		return nil, nil, fmt.Errorf("%w: only the group owner can do this", ErrForbidden)
	}
	return order, group, nil
}

func (s *permissionService) CanJoinRoom(ctx context.Context, email, room string) bool {
	kind, id, ok := socket.ParseRoom(room)
	if !ok {
		return false
	}

	actor := Actor{Email: email}
	var err error
	switch kind {
	case "group":
		_, err = s.GroupForMember(ctx, actor, id)
	case "order":
		_, _, err = s.OrderForMember(ctx, actor, id)
	}
	return err == nil
}
