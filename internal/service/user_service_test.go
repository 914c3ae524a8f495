package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
)

func TestResolveAndDisplayName(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.User.Resolve(f.ctx, "Alice@Example.com", "Alice Liddell")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, NeedsDisplayName(user))
	assert.Equal(t, "Alice Liddell", ActingName(user))

	_, err = f.svc.User.UpdateDisplayName(f.ctx, user.Email, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.User.UpdateDisplayName(f.ctx, user.Email, strings.Repeat("a", MaxDisplayNameLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	user, err = f.svc.User.UpdateDisplayName(f.ctx, user.Email, "  Ally ")
	require.NoError(t, err)
	assert.Equal(t, "Ally", ActorFor(user).Name)
	assert.False(t, NeedsDisplayName(user))

	// Resolving again keeps the chosen display name.
	user, err = f.svc.User.Resolve(f.ctx, "alice@example.com", "Alice Liddell")
	require.NoError(t, err)
	got, err := f.svc.User.Get(f.ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Ally", *got.DisplayName)
}

func TestActingNameFallsBackToEmail(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.User.Resolve(f.ctx, "nobody@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "nobody@example.com", ActingName(user))
}

func TestTokenRoundTrip(t *testing.T) {
	f := newFixture(t)

	token, err := f.svc.Auth.IssueToken(" Bob@Example.com ", "Bob")
	require.NoError(t, err)

	claims, err := f.svc.Auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", claims.Email)
	assert.Equal(t, "Bob", claims.Name)
}

func TestValidateTokenRejects(t *testing.T) {
	f := newFixture(t)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()

	wrongSecret := sign(jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"email": "a@example.com", "exp": exp})
	_, err := f.svc.Auth.ValidateToken(wrongSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"email": "a@example.com", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = f.svc.Auth.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noEmail := sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"exp": exp})
	_, err = f.svc.Auth.ValidateToken(noEmail)
	assert.ErrorIs(t, err, ErrInvalidToken)

	subject := sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"sub": "Carol@Example.com", "exp": exp})
	claims, err := f.svc.Auth.ValidateToken(subject)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", claims.Email)
}

func TestAuthWithoutSigningKeyRejectsEverything(t *testing.T) {
	auth := NewAuthService(nil)

	_, err := auth.IssueToken("a@example.com", "A")
	assert.ErrorIs(t, err, ErrUnavailable)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "owner@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(config.DevJWTSecret))
	require.NoError(t, err)
	_, err = auth.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCanJoinRoom(t *testing.T) {
	f := newFixture(t)
	group := f.groupWith(t, alice, bob)
	order := f.openOrder(t, alice, group.ID)

	assert.True(t, f.svc.Permission.CanJoinRoom(f.ctx, "bob@example.com", socket.GroupRoom(group.ID)))
	assert.True(t, f.svc.Permission.CanJoinRoom(f.ctx, "BOB@example.com", socket.OrderRoom(order.ID)))
	assert.False(t, f.svc.Permission.CanJoinRoom(f.ctx, "carol@example.com", socket.GroupRoom(group.ID)))
	assert.False(t, f.svc.Permission.CanJoinRoom(f.ctx, "carol@example.com", socket.OrderRoom(order.ID)))
	assert.False(t, f.svc.Permission.CanJoinRoom(f.ctx, "bob@example.com", "user:bob"))
}
