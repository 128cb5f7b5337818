package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// CookieName is the cookie carrying the governor token.
const CookieName = "token"

// Authenticator resolves a raw token to a governor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.GovernorView, error)
}

// Guard enforces governor tokens on protected routes. The Authorization
// bearer header wins; the http-only cookie set at login is the fallback.
// The resolved governor goes into the request context, never the hash.
func Guard(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := a.Authenticate(c.Request.Context(), TokenFromRequest(c))
		if err != nil {
			e := apperr.From(err)
			c.AbortWithStatusJSON(e.Kind.Status(), gin.H{"message": e.Message})
			return
		}
		c.Request = c.Request.WithContext(WithGovernor(c.Request.Context(), g))
		c.Next()
	}
}

// TokenFromRequest extracts the bearer token or the cookie token.
func TokenFromRequest(c *gin.Context) string {
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return ""
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}
