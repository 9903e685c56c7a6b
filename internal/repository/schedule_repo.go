package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"wastereminder/internal/model"
	"wastereminder/pkg/metrics"
)

type ScheduleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewScheduleRepository(db *pgxpool.Pool, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger}
}

const scheduleColumns = `s.id, s.area_id, s.waste_type, s.day_of_week,
	to_char(s.collection_time, 'HH24:MI'),
	s.lifecycle_state, COALESCE(s.lifecycle_reason, ''), s.lifecycle_changed_at,
	s.created_at, s.updated_at`

// FindActiveByDayOfWeek returns active schedules of active areas for day, ascending id.
func (r *ScheduleRepository) FindActiveByDayOfWeek(ctx context.Context, day time.Weekday) ([]model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM collection_schedules s
		JOIN areas a ON a.id = s.area_id
		WHERE UPPER(TRIM(s.day_of_week)) = $1
		  AND s.lifecycle_state = 'ACTIVE'
		  AND a.lifecycle_state = 'ACTIVE'
		ORDER BY s.id ASC
	`
	rows, err := r.db.Query(ctx, query, model.WeekdayName(day))
	if err != nil {
		return nil, fmt.Errorf("find schedules for %s: %w", day, err)
	}
	return r.collectSchedules(rows)
}

// FindActiveByArea returns the active schedules of one area, ascending id.
func (r *ScheduleRepository) FindActiveByArea(ctx context.Context, areaID int64) ([]model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM collection_schedules s
		WHERE s.area_id = $1 AND s.lifecycle_state = 'ACTIVE'
		ORDER BY s.id ASC
	`
	rows, err := r.db.Query(ctx, query, areaID)
	if err != nil {
		return nil, fmt.Errorf("find schedules for area %d: %w", areaID, err)
	}
	return r.collectSchedules(rows)
}

// scheduleRow 排班表的一行原始列值
type scheduleRow struct {
	id, areaID            int64
	wasteType, day, clock string
	state, reason         string
	changedAt             time.Time
	createdAt, updatedAt  time.Time
}

func (row scheduleRow) decode() (model.Schedule, error) {
	s := model.Schedule{ID: row.id, AreaID: row.areaID, CreatedAt: row.createdAt, UpdatedAt: row.updatedAt}

	var err error
	if s.WasteType, err = model.ParseWasteType(row.wasteType); err != nil {
		return model.Schedule{}, fmt.Errorf("schedule %d: %w", row.id, err)
	}
	if s.DayOfWeek, err = model.ParseWeekday(row.day); err != nil {
		return model.Schedule{}, fmt.Errorf("schedule %d: %w", row.id, err)
	}
	if s.CollectionTime, err = model.ParseClockTime(row.clock); err != nil {
		return model.Schedule{}, fmt.Errorf("schedule %d: %w", row.id, err)
	}
	if s.Lifecycle, err = toLifecycle(row.state, row.reason, row.changedAt); err != nil {
		return model.Schedule{}, fmt.Errorf("schedule %d: %w", row.id, err)
	}
	return s, nil
}

// collectSchedules 无法解析的行记录告警后跳过，不影响其余排班
func (r *ScheduleRepository) collectSchedules(rows pgx.Rows) ([]model.Schedule, error) {
	defer rows.Close()

	var decoded []scheduleRow
	for rows.Next() {
		var row scheduleRow
		if err := rows.Scan(&row.id, &row.areaID, &row.wasteType, &row.day, &row.clock,
			&row.state, &row.reason, &row.changedAt, &row.createdAt, &row.updatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		decoded = append(decoded, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decodeSchedules(decoded, r.logger), nil
}

func decodeSchedules(rows []scheduleRow, logger *zap.Logger) []model.Schedule {
	schedules := make([]model.Schedule, 0, len(rows))
	for _, row := range rows {
		s, err := row.decode()
		if err != nil {
			logger.Warn("Skipping malformed schedule row", zap.Int64("schedule_id", row.id), zap.Error(err))
			metrics.AddReminderSchedules("malformed", 1)
			continue
		}
		schedules = append(schedules, s)
	}
	return schedules
}
