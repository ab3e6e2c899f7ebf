package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleMonitor is the only role the status server accepts
const RoleMonitor = "monitor"

const defaultTokenTTL = 24 * time.Hour

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	Actor string `json:"actor"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates monitor tokens with a shared HMAC secret
type TokenIssuer struct {
	secret []byte
	actor  string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for tokens scoped to actor
func NewTokenIssuer(secret, actor string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), actor: actor, ttl: ttl, now: time.Now}, nil
}

// GenerateMonitorToken generates a JWT token for a monitoring client
func (i *TokenIssuer) GenerateMonitorToken(subject string) (string, error) {
	now := i.now()
	claims := &JWTClaims{
		Actor: i.actor,
		Role:  RoleMonitor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (i *TokenIssuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}
	if claims.Role != RoleMonitor {
		return nil, fmt.Errorf("role %q not allowed", claims.Role)
	}
	if claims.Actor != i.actor {
		return nil, fmt.Errorf("token issued for actor %q", claims.Actor)
	}
	return claims, nil
}
