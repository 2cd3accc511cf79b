// Package auth validates bearer tokens issued by the upstream identity
// service. No tokens are issued here; the engine only needs to know who
// is calling.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"salesflow/internal/core/actor"
)

// Claims represents the JWT claims the upstream identity service signs.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Role  string `json:"role"`
	HubID string `json:"hub,omitempty"`
}

// JWTService validates access tokens.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT validation service.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// ValidateToken validates a JWT and returns the actor it identifies.
func (s *JWTService) ValidateToken(tokenString string) (*actor.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &actor.Actor{
		ID:    claims.Subject,
		Name:  claims.Name,
		Role:  claims.Role,
		HubID: claims.HubID,
	}, nil
}
