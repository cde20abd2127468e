package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/session"
)

// Context keys set by the auth middleware
const (
	IdentityKey     = "identity"
	UserIDKey       = "user_id"
	BackendTokenKey = "backend_token"
)

// TokenParser parses session tokens. *session.TokenManager implements it.
type TokenParser interface {
	Parse(tokenString string) (*session.Claims, error)
}

// Auth rejects requests without a valid Bearer session token
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "ログインが必要です")
			return
		}
		if !authenticate(c, parser, token) {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "セッションの有効期限が切れました")
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets the
// request through either way.
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			authenticate(c, parser, token)
		}
		c.Next()
	}
}

// QueryAuth authenticates WebSocket upgrades, which cannot carry headers from
// browsers. The token comes from the "token" query parameter.
func QueryAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = bearerToken(c)
		}
		if token == "" || !authenticate(c, parser, token) {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Invalid or missing token")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *gin.Context, parser TokenParser, token string) bool {
	claims, err := parser.Parse(token)
	if err != nil {
		return false
	}
	identity := claims.Identity()
	c.Set(IdentityKey, identity)
	c.Set(UserIDKey, identity.ID)
	c.Set(BackendTokenKey, claims.BackendToken)
	return true
}

// GetIdentity returns the identity stored by the auth middleware
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// GetBackendToken returns the hosted auth token carried in the session, if any
func GetBackendToken(c *gin.Context) string {
	return c.GetString(BackendTokenKey)
}
