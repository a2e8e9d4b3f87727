package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vouch/internal/platform/middleware"
)

// Claims are the JWT claims carried by service tokens.
type Claims struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 signed tokens.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

// NewService creates a token service with the given signing key and lifetime.
func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		ttl:        ttl,
	}
}

// Generate issues a signed token for the given actor and roles.
func (s *Service) Generate(actorID string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		ActorID: actorID,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning the actor it identifies.
func (s *Service) Validate(tokenString string) (middleware.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signingKey, nil
	})
	if err != nil {
		return middleware.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return middleware.Actor{}, fmt.Errorf("invalid token")
	}

	return middleware.Actor{ID: claims.ActorID, Roles: claims.Roles}, nil
}
