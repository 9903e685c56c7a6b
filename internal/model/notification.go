package model

import (
	"fmt"
	"time"
)

// NotificationType 站内通知类型
type NotificationType string

const (
	NotificationReportSubmitted     NotificationType = "REPORT_SUBMITTED"
	NotificationReportAssigned      NotificationType = "REPORT_ASSIGNED"
	NotificationReportStatusChanged NotificationType = "REPORT_STATUS_CHANGED"
	NotificationCollectionReminder  NotificationType = "COLLECTION_REMINDER"
	NotificationSystemAnnouncement  NotificationType = "SYSTEM_ANNOUNCEMENT"
)

// ParseNotificationType 解析通知类型
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationReportSubmitted, NotificationReportAssigned, NotificationReportStatusChanged,
		NotificationCollectionReminder, NotificationSystemAnnouncement:
		return t, nil
	default:
		return "", fmt.Errorf("unknown notification type %q", s)
	}
}

type Notification struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	Type            NotificationType `json:"type"`
	RelatedReportID *int64           `json:"related_report_id,omitempty"`
	IsRead          bool             `json:"is_read"`
	CreatedAt       time.Time        `json:"created_at"`
	ReadAt          *time.Time       `json:"read_at,omitempty"`
}
