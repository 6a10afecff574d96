package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/gin-gonic/gin"
)

// SessionCookieName carries the access token for browser clients that do not
// set an Authorization header.
const SessionCookieName = "session_token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func unauthorized(c *gin.Context, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": id,
		},
	})
}

// tokenFrom prefers the Authorization header and falls back to the cookie.
func tokenFrom(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", false
		}
		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		return raw, raw != ""
	}

	raw, err := c.Cookie(SessionCookieName)
	if err != nil || raw == "" {
		return "", false
	}
	return raw, true
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := tokenFrom(c)
		if !ok {
			unauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			unauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Request = c.Request.WithContext(observability.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
