package models

import "time"

// NotificationKind classifies a user-visible notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a one-line transient message for the user of a session.
type Notification struct {
	SessionID string           `json:"sessionId"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Time      time.Time        `json:"time"`
}
