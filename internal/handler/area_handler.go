package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
	"wastereminder/internal/service/reminder"
)

// AreaLocator 按坐标定位服务区域
type AreaLocator interface {
	NearestArea(ctx context.Context, p geo.Point) (*model.Area, geo.Distance, error)
}

// ScheduleLister 区域内的有效排班
type ScheduleLister interface {
	ForArea(ctx context.Context, areaID int64) ([]model.Schedule, error)
}

type AreaHandler struct {
	areas     AreaLocator
	schedules ScheduleLister
	logger    *zap.Logger
}

func NewAreaHandler(areas AreaLocator, schedules ScheduleLister, logger *zap.Logger) *AreaHandler {
	return &AreaHandler{
		areas:     areas,
		schedules: schedules,
		logger:    logger,
	}
}

type areaResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Municipality string   `json:"municipality"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

type scheduleResponse struct {
	ID             int64     `json:"id"`
	AreaID         int64     `json:"area_id"`
	WasteType      string    `json:"waste_type"`
	WasteTypeLabel string    `json:"waste_type_label"`
	DayOfWeek      string    `json:"day_of_week"`
	CollectionTime string    `json:"collection_time"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAreaResponse(a *model.Area) areaResponse {
	lat, lng := a.Center.Ptrs()
	return areaResponse{
		ID:           a.ID,
		Name:         a.Name,
		Municipality: a.Municipality,
		Neighborhood: a.Neighborhood,
		Lat:          lat,
		Lng:          lng,
	}
}

// GetNearestArea 离给定坐标最近的服务区域
// GET /api/areas/nearest?lat=42.66&lng=21.16
func (h *AreaHandler) GetNearestArea(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required numbers"})
		return
	}

	area, d, err := h.areas.NearestArea(c.Request.Context(), geo.NewPoint(lat, lng))
	if errors.Is(err, reminder.ErrInvalidPoint) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, "failed to locate area", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"area":       toAreaResponse(area),
		"distance_m": d.Meters(),
	})
}

// GetAreaSchedules 区域的有效收运排班
// GET /api/areas/:id/schedules
func (h *AreaHandler) GetAreaSchedules(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	list, err := h.schedules.ForArea(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list area schedules", zap.Int64("area_id", id), zap.Error(err))
		writeError(c, "failed to list schedules", err)
		return
	}

	out := make([]scheduleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, scheduleResponse{
			ID:             s.ID,
			AreaID:         s.AreaID,
			WasteType:      string(s.WasteType),
			WasteTypeLabel: s.WasteType.Label(),
			DayOfWeek:      model.WeekdayName(s.DayOfWeek),
			CollectionTime: s.CollectionTime.String(),
			UpdatedAt:      s.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"area_id": id, "schedules": out})
}
