package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Auth errors.
var (
	// ErrInvalidCredentials is returned when login fails. It deliberately
	// does not distinguish a missing user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a JWT fails validation.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// JWTTokenService issues and validates HMAC-signed JWTs carrying the user ID
// as the subject claim.
type JWTTokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewJWTTokenService creates a token service. The secret must be at least 32
// bytes.
func NewJWTTokenService(secret string, lifetime time.Duration) (*JWTTokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 characters")
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &JWTTokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
	}, nil
}

// GenerateToken issues a signed token for the user.
func (s *JWTTokenService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the token's signature and expiry and returns the
// user ID it was issued for.
func (s *JWTTokenService) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return userID, nil
}
