package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanaka-0224/Iverse2/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

// Claims is the payload of a session token
type Claims struct {
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Mode         domain.AuthMode `json:"mode"`
	BackendToken string          `json:"backend_token,omitempty"`
	jwt.RegisteredClaims
}

// Token is an issued session token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenManager signs and validates HS256 session tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for identity. backendToken is the hosted auth access
// token, kept so sign-out can revoke it; it is empty for demo identities.
func (m *TokenManager) Issue(identity domain.Identity, backendToken string) (*Token, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Email:        identity.Email,
		Name:         identity.Name,
		Mode:         identity.Mode,
		BackendToken: backendToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}

// Parse validates tokenString and returns its claims
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken returns the identity carried by tokenString
func (m *TokenManager) ValidateToken(_ context.Context, tokenString string) (domain.Identity, error) {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.Identity(), nil
}

// Identity converts claims back to the caller identity
func (c *Claims) Identity() domain.Identity {
	mode := c.Mode
	if mode == "" {
		mode = domain.AuthModeBackend
	}
	return domain.Identity{
		ID:    c.Subject,
		Email: c.Email,
		Name:  c.Name,
		Mode:  mode,
	}
}
