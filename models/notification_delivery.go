package models

import "time"

// Delivery statuses
const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSending = "sending"
	DeliveryStatusSent    = "sent"
	DeliveryStatusFailed  = "failed"
)

// NotificationDelivery is one attempt to send a notification over one channel.
// Multiple rows may exist per (notification, channel) across retries; the
// latest row's status is authoritative for that channel.
type NotificationDelivery struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	NotificationID uint       `gorm:"index;not null" json:"notification_id"`
	Channel        string     `gorm:"type:varchar(20);not null;index" json:"channel"`
	Recipient      string     `gorm:"type:varchar(255);not null" json:"recipient"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ProviderRef    string     `gorm:"type:varchar(64)" json:"provider_ref,omitempty"`
	FailureReason  *string    `gorm:"type:varchar(500)" json:"failure_reason,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}
