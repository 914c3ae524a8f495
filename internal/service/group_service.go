package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/Marga-Ghale/cardpool-backend/internal/email"
	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 6
	inviteCodeAttempts = 5
)

// ============================================
// Group Service
// ============================================

type GroupService interface {
	Create(ctx context.Context, actor Actor, name string, description *string) (*repository.Group, error)
	Join(ctx context.Context, actor Actor, inviteCode string) (*repository.Group, error)
	Get(ctx context.Context, actor Actor, id string) (*repository.Group, error)
	ListMine(ctx context.Context, actor Actor) ([]*repository.Group, error)
	Delete(ctx context.Context, actor Actor, id string) error
	SendInvite(ctx context.Context, actor Actor, groupID, to string) error
}

type groupService struct {
	groupRepo  repository.GroupRepository
	permission PermissionService
	cascade    CascadeService
	emailSvc   *email.Service
	notify     *notifier
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	permission PermissionService,
	cascade CascadeService,
	emailSvc *email.Service,
	notify *notifier,
) GroupService {
	return &groupService{
		groupRepo:  groupRepo,
		permission: permission,
		cascade:    cascade,
		emailSvc:   emailSvc,
		notify:     notify,
	}
}

// NewInviteCode draws a code of uppercase letters and digits from crypto/rand.
func NewInviteCode() (string, error) {
	size := big.NewInt(int64(len(inviteCodeAlphabet)))
	var b strings.Builder
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode trims and uppercases user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *groupService) Create(ctx context.Context, actor Actor, name string, description *string) (*repository.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}

	ownerEmail := NormalizeEmail(actor.Email)
	group := &repository.Group{
		Name:        name,
		Description: description,
		OwnerEmail:  ownerEmail,
		Members: []repository.GroupMember{
			{Email: ownerEmail, Name: actor.Name},
		},
	}

	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group.InviteCode, err = NewInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		err = s.groupRepo.Create(ctx, group)
		if !errors.Is(err, repository.ErrDuplicateInviteCode) {
			break
		}
		slog.Debug("invite code collision, retrying", "component", "groups", "attempt", attempt+1)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create group: %v", ErrTransport, err)
	}

	s.notify.publish(ctx, events.GroupCreated, map[string]interface{}{
		"group_id":    group.ID,
		"name":        group.Name,
		"owner_email": group.OwnerEmail,
	})

	return group, nil
}

func (s *groupService) Join(ctx context.Context, actor Actor, inviteCode string) (*repository.Group, error) {
	code := NormalizeInviteCode(inviteCode)
	if code == "" {
		return nil, fmt.Errorf("%w: invite_code is required", ErrValidation)
	}

	group, err := s.groupRepo.FindByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: find group: %v", ErrTransport, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: invalid invite code", ErrNotFound)
	}
	if s.permission.IsMember(actor, group) {
		return nil, ErrAlreadyMember
	}

	member := &repository.GroupMember{
		GroupID: group.ID,
		Email:   NormalizeEmail(actor.Email),
		Name:    actor.Name,
	}
	added, err := s.groupRepo.AddMember(ctx, member)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, group.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: add member: %v", ErrTransport, err)
	}
	if !added {
		return nil, ErrAlreadyMember
	}

	payload := map[string]interface{}{
		"group_id":  group.ID,
		"email":     member.Email,
		"name":      member.Name,
		"joined_at": member.JoinedAt,
	}
	if ws := s.notify.ws(); ws != nil {
		ws.BroadcastMemberJoined(group.ID, payload, member.Email)
	}
	s.notify.publish(ctx, events.GroupMemberJoined, payload)

	joined, err := s.groupRepo.FindByID(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload group: %v", ErrTransport, err)
	}
	if joined == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, group.ID)
	}
	return joined, nil
}

func (s *groupService) Get(ctx context.Context, actor Actor, id string) (*repository.Group, error) {
	return s.permission.GroupForMember(ctx, actor, id)
}

func (s *groupService) ListMine(ctx context.Context, actor Actor) ([]*repository.Group, error) {
	groups, err := s.groupRepo.ListByMember(ctx, NormalizeEmail(actor.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: list groups: %v", ErrTransport, err)
	}
	return groups, nil
}

func (s *groupService) Delete(ctx context.Context, actor Actor, id string) error {
	group, err := s.permission.GroupForOwner(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.cascade.DeleteGroup(ctx, actor, group)
}

func (s *groupService) SendInvite(ctx context.Context, actor Actor, groupID, to string) error {
	if s.emailSvc == nil {
		return fmt.Errorf("%w: invite mail is not configured", ErrUnavailable)
	}
	to = NormalizeEmail(to)
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	group, err := s.permission.GroupForMember(ctx, actor, groupID)
	if err != nil {
		return err
	}

	if err := s.emailSvc.SendGroupInvite(to, email.GroupInviteData{
		GroupName:  group.Name,
		InvitedBy:  actor.Name,
		InviteCode: group.InviteCode,
	}); err != nil {
		slog.Error("failed to send invite email", "component", "groups", "group_id", group.ID, "error", err)
		return fmt.Errorf("%w: send invite: %v", ErrTransport, err)
	}
	return nil
}
