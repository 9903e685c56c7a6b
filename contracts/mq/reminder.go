package mq

import "time"

// ReminderRunRequestedPayload 手动触发一次提醒任务
type ReminderRunRequestedPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	// Now 覆盖运行时刻（用于补发某一天的提醒），为空时使用当前时间
	Now     *time.Time `json:"now,omitempty"`
	TraceID string     `json:"trace_id,omitempty"`
}

// ReminderEmailRequestedPayload 交给外部邮件服务发送的收运提醒
type ReminderEmailRequestedPayload struct {
	RunID          string `json:"run_id"`
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	ScheduleID     int64  `json:"schedule_id"`
	AreaID         int64  `json:"area_id"`
	AreaName       string `json:"area_name"`
	WasteType      string `json:"waste_type"`
	WasteTypeLabel string `json:"waste_type_label"`
	CollectionTime string `json:"collection_time"` // HH:MM
	DayName        string `json:"day_name"`
	TargetDate     string `json:"target_date"` // YYYY-MM-DD
	TraceID        string `json:"trace_id,omitempty"`
}
