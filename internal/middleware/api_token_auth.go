package middleware

import (
	"context"

	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// APITokenAuth authenticates requests carrying an x-api-key header. This is
// the auth path used by the QuickBooks sync collaborator, which pushes
// documents machine-to-machine without a browser session.
func APITokenAuth(tokenSvc portssvc.APITokenSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip authentication for public routes
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		apiKey := c.GetHeader("x-api-key")
		if apiKey == "" {
			c.Next() // No api key provided, fall through to JWT auth
			return
		}

		user, err := tokenSvc.ValidateToken(c.Request.Context(), apiKey)
		if err != nil {
			c.Next() // Token validation failed, fall through to JWT auth
			return
		}

		// Token is valid: record the user in both contexts and skip JWT auth
		c.Set(string(userIDKey), user.UserID)
		c.Set("authMethod", "api_token")
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userIDKey, user.UserID))
		c.Next()
	}
}

// isPublicRoute checks if the given path is a public route that doesn't require authentication
func isPublicRoute(path string) bool {
	publicRoutes := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/register",
		"/health",
	}

	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}

	return false
}
