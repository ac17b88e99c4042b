// internal/models/notification.go
package models

type Notification struct {
	ID        string                 `json:"id"`
	ClientID  string                 `json:"clientId"`
	Recipient string                 `json:"recipient"`
	Type      string                 `json:"type"`    // "documents_ready"
	Channel   string                 `json:"channel"` // "email", "sms"
	Status    string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload   map[string]interface{} `json:"payload"`
	SentAt    string                 `json:"sentAt"`
}

type NotificationTemplate struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
