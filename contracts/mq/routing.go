package mq

// Routing keys on the events exchange.
const (
	RoutingKeyReminderRunRequested   = "reminder.run.requested"
	RoutingKeyReminderEmailRequested = "reminder.email.requested"
	RoutingKeyNotificationCreated    = "notification.created"
)
