package domain

import "time"

// Notification is a stored per-entity message, e.g. a verification decision outcome.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	EntityKey      string    `json:"entity_key" dynamodbav:"entity_key"`
	Message        string    `json:"message" dynamodbav:"message"`
	Read           bool      `json:"read" dynamodbav:"read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
