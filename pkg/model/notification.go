package model

import "time"

// NotificationType classifies an alert for display.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationAdmin   NotificationType = "admin"
	NotificationDefault NotificationType = "default"
)

// ParseNotificationType maps a server value to a known type.
// Unknown or empty values become NotificationDefault.
func ParseNotificationType(s string) NotificationType {
	switch t := NotificationType(s); t {
	case NotificationInfo, NotificationWarning, NotificationAdmin, NotificationDefault:
		return t
	}
	return NotificationDefault
}

// Notification is an alert as shown in the notification panel.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"` // formatted for display
	Read      bool             `json:"read"`
	Type      NotificationType `json:"type"`
}

// ServerNotification is the wire shape of GET /notifications items.
type ServerNotification struct {
	ID        FlexibleID `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	IsRead    bool       `json:"is_read"`
	CreatedAt string     `json:"created_at"`
}

// ChatMessage is one entry in the chatbot transcript.
type ChatMessage struct {
	From string    `json:"from"` // "user" or "bot"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
