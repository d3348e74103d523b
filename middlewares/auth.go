package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-service/utils"
)

const (
	ContextUserID = "userID"
	ContextClaims = "claims"
)

// AuthMiddleware requires a valid bearer token and stores the user id and
// claims in the gin context.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		claims, err := tokens.ParseToken(strings.TrimSpace(raw))
		if err != nil || claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 outside AuthMiddleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

func Claims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}
