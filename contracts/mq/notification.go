package mq

import "time"

type NotificationCreatedPayload struct {
	NotificationID  int64     `json:"notification_id"`
	UserID          int64     `json:"user_id"`
	Type            string    `json:"type"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	RelatedReportID *int64    `json:"related_report_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
