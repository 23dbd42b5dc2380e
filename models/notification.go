package models

import (
	"time"
)

// Notification statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSending = "sending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification priorities
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Delivery channels
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "in_app"
)

// MaxRetryCount is the upper bound for automatic redelivery attempts.
// Once reached the notification stays failed until a manual resend.
const MaxRetryCount = 3

type Notification struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	UserID    uint    `gorm:"index;not null" json:"user_id"`
	Type      string  `gorm:"type:varchar(50);not null;index" json:"type"`
	Title     string  `gorm:"type:varchar(200);not null" json:"title"`
	Message   string  `gorm:"type:text;not null" json:"message"`
	Priority  string  `gorm:"type:varchar(20);not null;default:'normal'" json:"priority"`
	Status    string  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Category  *string `gorm:"type:varchar(50)" json:"category,omitempty"`
	ActionURL *string `gorm:"type:varchar(500)" json:"action_url,omitempty"`
	Metadata  JSONMap `gorm:"type:text" json:"metadata,omitempty"`

	// Channels requested for this notification
	SendPush  bool `gorm:"not null" json:"send_push"`
	SendEmail bool `gorm:"not null" json:"send_email"`
	SendSMS   bool `gorm:"not null" json:"send_sms"`
	SendInApp bool `gorm:"not null" json:"send_in_app"`

	IsRead bool       `gorm:"not null;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`

	FailureReason *string    `gorm:"type:varchar(500)" json:"failure_reason,omitempty"`
	RetryCount    int        `gorm:"not null;default:0" json:"retry_count"`
	NextRetryAt   *time.Time `gorm:"index" json:"next_retry_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Deliveries []NotificationDelivery `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"deliveries,omitempty"`
}

// RequestedChannels -> the channels this notification asked for
func (n *Notification) RequestedChannels() []string {
	channels := make([]string, 0, 4)
	if n.SendPush {
		channels = append(channels, ChannelPush)
	}
	if n.SendEmail {
		channels = append(channels, ChannelEmail)
	}
	if n.SendSMS {
		channels = append(channels, ChannelSMS)
	}
	if n.SendInApp {
		channels = append(channels, ChannelInApp)
	}
	return channels
}

// Metadata keys holding channel-specific bodies rendered from a template.
const (
	MetaEmailBody = "email_body"
	MetaSMSBody   = "sms_body"
	MetaPushBody  = "push_body"
)

// ChannelBody -> the body to send on a channel. Templated notifications may
// carry a channel-specific rendering in metadata; the base message is the
// fallback.
func (n *Notification) ChannelBody(channel string) string {
	var key string
	switch channel {
	case ChannelEmail:
		key = MetaEmailBody
	case ChannelSMS:
		key = MetaSMSBody
	case ChannelPush:
		key = MetaPushBody
	default:
		return n.Message
	}
	if v, ok := n.Metadata[key].(string); ok && v != "" {
		return v
	}
	return n.Message
}

// IsTerminal -> no further automatic transition happens from this state
func (n *Notification) IsTerminal() bool {
	if n.Status == NotificationStatusSent {
		return true
	}
	return n.Status == NotificationStatusFailed && n.RetryCount >= MaxRetryCount
}
