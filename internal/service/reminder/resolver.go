package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
	"wastereminder/internal/repository"
	"wastereminder/pkg/logger"
)

// ErrInvalidPoint 坐标缺失或越界
var ErrInvalidPoint = errors.New("invalid coordinates")

// ScheduleStore 排班查询
type ScheduleStore interface {
	FindActiveByDayOfWeek(ctx context.Context, day time.Weekday) ([]model.Schedule, error)
	FindActiveByArea(ctx context.Context, areaID int64) ([]model.Schedule, error)
}

// AreaStore 区域查询，GetByID 不存在时返回 repository.ErrNotFound
type AreaStore interface {
	GetByID(ctx context.Context, id int64) (*model.Area, error)
	ListActive(ctx context.Context) ([]model.Area, error)
}

// CitizenStore 市民查询，box 仅用于粗筛
type CitizenStore interface {
	FindActiveVerifiedCitizensNear(ctx context.Context, box geo.BoundingBox) ([]model.Citizen, error)
}

// ScheduleResolver 计算"明天"需要提醒的排班
type ScheduleResolver struct {
	store ScheduleStore
	loc   *time.Location
}

func NewScheduleResolver(store ScheduleStore, loc *time.Location) *ScheduleResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleResolver{store: store, loc: loc}
}

// TargetDate now 在配置时区下的次日零点
func (r *ScheduleResolver) TargetDate(now time.Time) time.Time {
	local := now.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, r.loc)
}

// DueTomorrow 返回次日的有效排班，按 id 升序；没有时返回空切片
func (r *ScheduleResolver) DueTomorrow(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	day := r.TargetDate(now).Weekday()
	found, err := r.store.FindActiveByDayOfWeek(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("resolve schedules for %s: %w", day, err)
	}

	due := make([]model.Schedule, 0, len(found))
	for _, s := range found {
		if s.Lifecycle.IsActive() && s.DayOfWeek == day {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

// ForArea 区域的全部有效排班
func (r *ScheduleResolver) ForArea(ctx context.Context, areaID int64) ([]model.Schedule, error) {
	return r.store.FindActiveByArea(ctx, areaID)
}

// RecipientResolver 按地理围栏筛选区域内可接收提醒的市民
type RecipientResolver struct {
	store  CitizenStore
	logger *zap.Logger
}

func NewRecipientResolver(store CitizenStore, logger *zap.Logger) *RecipientResolver {
	return &RecipientResolver{store: store, logger: logger}
}

// EligibleCitizens 区域中心 radius 范围内的有效市民；区域没有中心坐标时返回空
func (r *RecipientResolver) EligibleCitizens(ctx context.Context, area model.Area, radius geo.Distance) ([]model.Citizen, error) {
	log := logger.WithTrace(ctx, r.logger).With(zap.Int64("area_id", area.ID))

	if !area.HasCenter() {
		log.Warn("Area has no usable center, no recipients resolved",
			zap.String("area", area.Name),
			zap.Stringer("center", area.Center),
		)
		return []model.Citizen{}, nil
	}
	box, ok := geo.BoundingBoxAround(area.Center, radius)
	if !ok {
		return nil, fmt.Errorf("resolve recipients for area %d: invalid radius %s", area.ID, radius)
	}

	candidates, err := r.store.FindActiveVerifiedCitizensNear(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for area %d: %w", area.ID, err)
	}

	eligible := make([]model.Citizen, 0, len(candidates))
	for _, c := range candidates {
		if !c.ReminderEligible() {
			continue
		}
		if geo.WithinRadius(area.Center, radius, c.Location) {
			eligible = append(eligible, c)
		}
	}

	log.Debug("Recipients resolved",
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(eligible)),
	)
	return eligible, nil
}

// AreaResolver 根据坐标定位服务区域
type AreaResolver struct {
	store AreaStore
}

func NewAreaResolver(store AreaStore) *AreaResolver {
	return &AreaResolver{store: store}
}

// NearestArea 离 p 最近的有效区域
func (r *AreaResolver) NearestArea(ctx context.Context, p geo.Point) (*model.Area, geo.Distance, error) {
	if !p.Valid() {
		return nil, 0, fmt.Errorf("nearest area to %s: %w", p, ErrInvalidPoint)
	}
	areas, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("nearest area: %w", err)
	}

	centers := make([]geo.Point, len(areas))
	for i, a := range areas {
		centers[i] = a.Center
	}
	idx, d, ok := geo.Nearest(p, centers)
	if !ok {
		return nil, 0, fmt.Errorf("nearest area to %s: %w", p, repository.ErrNotFound)
	}
	return &areas[idx], d, nil
}
