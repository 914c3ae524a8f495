package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Marga-Ghale/cardpool-backend/internal/config"
)

// ============================================
// Auth Service
// ============================================

// Claims carried by bearer tokens. Email falls back to the subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// ValidateToken verifies an HS256 token and returns its claims with Email
	// normalized.
	ValidateToken(token string) (*Claims, error)
	// IssueToken signs a token for email. Used by the development token
	// endpoint and the seeder.
	IssueToken(email, name string) (string, error)
}

type authService struct {
	secret []byte
	expiry time.Duration
}

func NewAuthService(cfg *config.Config) AuthService {
	var secret string
	expiry := 24 * time.Hour
	if cfg != nil {
		secret = cfg.JWTSecret
		if cfg.JWTExpiry > 0 {
			expiry = time.Duration(cfg.JWTExpiry) * time.Hour
		}
	}
	return &authService{secret: []byte(secret), expiry: expiry}
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing key configured", ErrInvalidToken)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Email == "" {
		claims.Email = claims.Subject
	}
	claims.Email = NormalizeEmail(claims.Email)
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrInvalidToken)
	}
	return claims, nil
}

func (s *authService) IssueToken(email, name string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: no signing key configured", ErrUnavailable)
	}
	email = NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
