package notifydocumentsready

type Input struct {
	ClientID     string `json:"clientId"`
	AdvisorEmail string `json:"advisorEmail"`
	AdvisorPhone string `json:"advisorPhone,omitempty"`
	Priority     string `json:"priority,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt,omitempty"`
}

// Statuses
const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
	StatusNotReady = "not_ready"
)

// Priorities, lowest first.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
