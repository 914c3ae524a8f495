package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

// MaxDisplayNameLength bounds a user's display name, in characters.
const MaxDisplayNameLength = 50

type UserService interface {
	// Resolve upserts the user named by token claims.
	Resolve(ctx context.Context, email, fullName string) (*repository.User, error)
	Get(ctx context.Context, email string) (*repository.User, error)
	UpdateDisplayName(ctx context.Context, email, displayName string) (*repository.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Resolve(ctx context.Context, email, fullName string) (*repository.User, error) {
	user := &repository.User{
		Email:    NormalizeEmail(email),
		FullName: strings.TrimSpace(fullName),
	}
	if user.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: upsert user: %v", ErrTransport, err)
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, email string) (*repository.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrTransport, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *userService) UpdateDisplayName(ctx context.Context, email, displayName string) (*repository.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display_name is required", ErrValidation)
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return nil, fmt.Errorf("%w: display_name must be at most %d characters", ErrValidation, MaxDisplayNameLength)
	}

	email = NormalizeEmail(email)
	if err := s.userRepo.UpdateDisplayName(ctx, email, displayName); err != nil {
		return nil, fmt.Errorf("%w: update display name: %v", ErrTransport, err)
	}
	return s.Get(ctx, email)
}

// ActingName is display_name, else full_name, else email.
func ActingName(u *repository.User) string {
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) != "" {
		return *u.DisplayName
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// ActorFor builds the Actor of a resolved user.
func ActorFor(u *repository.User) Actor {
	return Actor{Email: u.Email, Name: ActingName(u)}
}

// NeedsDisplayName reports whether the user has not chosen a display name.
func NeedsDisplayName(u *repository.User) bool {
	return u.DisplayName == nil || strings.TrimSpace(*u.DisplayName) == ""
}
