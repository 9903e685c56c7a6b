package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wastereminder/internal/scheduler"
	"wastereminder/pkg/logger"
)

// ReminderTrigger 手动触发与运行统计
type ReminderTrigger interface {
	TriggerAsync(source string) bool
	Stats() scheduler.Stats
}

type ReminderHandler struct {
	trigger ReminderTrigger
	logger  *zap.Logger
}

func NewReminderHandler(trigger ReminderTrigger, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		trigger: trigger,
		logger:  logger,
	}
}

// TriggerRun 手动触发一次提醒任务，已有任务运行时返回 409
// POST /admin/reminders/run
func (h *ReminderHandler) TriggerRun(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	if !h.trigger.TriggerAsync(scheduler.SourceHTTP) {
		c.JSON(http.StatusConflict, gin.H{"error": scheduler.ErrRunInProgress.Error()})
		return
	}

	log.Info("Reminder run accepted", zap.Int64("requested_by", c.GetInt64(ContextUserID)))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetStats 调度器运行统计
// GET /admin/reminders/stats
func (h *ReminderHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.trigger.Stats())
}
