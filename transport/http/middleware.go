package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zkpersona/zkpersona/service"
)

// SessionCookie is the credential cookie set on login and read on
// protected calls.
const SessionCookie = "auth-token"

// contextAddressKey is where the middleware stores the authenticated
// wallet address.
const contextAddressKey = "walletAddress"

// AuthMiddleware validates the session credential before any proof state is
// touched. The cookie is checked first, then the Authorization header.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortError(c, http.StatusUnauthorized, CodeUnauthorized, "missing session credential")
			return
		}

		address, err := authService.Validate(c.Request.Context(), token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired session")
			return
		}

		c.Set(contextAddressKey, address)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
