package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wastereminder/internal/handler"
	"wastereminder/pkg/rbac"
)

// AuthMiddleware 校验 Bearer token，把 user_id 与 role 写入上下文
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := rbac.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		principal, err := rbac.ParseToken(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.ContextUserID, principal.UserID)
		c.Set(handler.ContextRole, principal.Role)

		c.Next()
	}
}
