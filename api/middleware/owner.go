package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mailweave/mailweave/interfaces"
)

const OwnerIDKey = "ownerID"

// OwnerAuthMiddleware resolves the caller's bearer token to an owner id and
// stores it in the gin context. Every endpoint behind it operates strictly
// within that owner's data.
func OwnerAuthMiddleware(identityService interfaces.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" || token == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			c.Abort()
			return
		}

		ownerID, err := identityService.ResolveOwner(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

// GetOwnerID reads the resolved owner id set by OwnerAuthMiddleware.
func GetOwnerID(c *gin.Context) string {
	return c.GetString(OwnerIDKey)
}
