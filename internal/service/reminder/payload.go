package reminder

import (
	"fmt"
	"time"

	"wastereminder/internal/model"
)

// ReminderTitle 提醒通知的标题
const ReminderTitle = "Collection Reminder"

// ReminderPayload 一个排班的提醒内容，每个排班构建一次，邮件与站内通知都由它派生
type ReminderPayload struct {
	RunID          string
	ScheduleID     int64
	AreaID         int64
	AreaName       string
	WasteType      model.WasteType
	WasteTypeLabel string
	CollectionTime string // HH:MM
	DayName        string
	TargetDate     time.Time
}

// NewPayload 为 schedule 构建提醒内容
func NewPayload(runID string, s model.Schedule, a model.Area, targetDate time.Time) ReminderPayload {
	return ReminderPayload{
		RunID:          runID,
		ScheduleID:     s.ID,
		AreaID:         a.ID,
		AreaName:       a.Name,
		WasteType:      s.WasteType,
		WasteTypeLabel: s.WasteType.Label(),
		CollectionTime: s.CollectionTime.String(),
		DayName:        model.WeekdayName(s.DayOfWeek),
		TargetDate:     targetDate,
	}
}

func (p ReminderPayload) Title() string {
	return ReminderTitle
}

// Message 如 "Tomorrow's GENERAL WASTE collection at 08:00 in Downtown"
func (p ReminderPayload) Message() string {
	return fmt.Sprintf("Tomorrow's %s collection at %s in %s", p.WasteTypeLabel, p.CollectionTime, p.AreaName)
}

// TargetDateString YYYY-MM-DD
func (p ReminderPayload) TargetDateString() string {
	return p.TargetDate.Format(time.DateOnly)
}
