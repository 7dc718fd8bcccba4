package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobtrack-backend/internal/auth/usecase"
)

// AuthMiddleware resolves the bearer token to an owner id and stores it
// under "userID".
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errorKind": "Unauthorized", "message": "authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errorKind": "Unauthorized", "message": "invalid authorization header format"})
			return
		}

		userID, err := authUsecase.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errorKind": "Unauthorized", "message": "invalid or expired token"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
