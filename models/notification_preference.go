package models

import "time"

// NotificationPreference is one user's channel opt-in/out for a notification
// type. Absence of a row means the default policy applies (push, email and
// in-app allowed, SMS denied), not "all denied".
type NotificationPreference struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex:idx_user_type;not null" json:"user_id"`
	Type         string    `gorm:"type:varchar(50);uniqueIndex:idx_user_type;not null" json:"type"`
	PushEnabled  bool      `gorm:"not null" json:"push_enabled"`
	EmailEnabled bool      `gorm:"not null" json:"email_enabled"`
	SMSEnabled   bool      `gorm:"not null" json:"sms_enabled"`
	InAppEnabled bool      `gorm:"not null" json:"in_app_enabled"`
	QuietStart   *string   `gorm:"type:varchar(5)" json:"quiet_start,omitempty"` // "HH:MM", advisory only
	QuietEnd     *string   `gorm:"type:varchar(5)" json:"quiet_end,omitempty"`
	Timezone     string    `gorm:"type:varchar(50);not null;default:'UTC'" json:"timezone"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// DefaultPreference -> policy used when no row exists for (user, type)
func DefaultPreference(userID uint, notifType string) NotificationPreference {
	return NotificationPreference{
		UserID:       userID,
		Type:         notifType,
		PushEnabled:  true,
		EmailEnabled: true,
		SMSEnabled:   false,
		InAppEnabled: true,
		Timezone:     "UTC",
	}
}

// ChannelEnabled -> the explicit flag for a channel
func (p *NotificationPreference) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelPush:
		return p.PushEnabled
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelInApp:
		return p.InAppEnabled
	}
	return false
}
