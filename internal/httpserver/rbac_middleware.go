package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wastereminder/internal/handler"
	"wastereminder/pkg/rbac"
)

// RequirePermission 中间件：要求用户具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetInt64(handler.ContextUserID)
		if uid <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if err := rbac.CheckPermission(uid, c.GetString(handler.ContextRole), permission); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}
