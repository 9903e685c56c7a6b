package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wastereminder/internal/repository"
)

// 认证中间件写入 gin.Context 的 key
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// currentUser 当前请求的用户 id，由认证中间件写入
func currentUser(c *gin.Context) (int64, bool) {
	uid := c.GetInt64(ContextUserID)
	if uid <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return uid, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// writeError ErrNotFound 映射为 404，其余为 500
func writeError(c *gin.Context, msg string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}
