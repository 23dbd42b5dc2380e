package models

import "time"

// NotificationTemplate holds per-channel template strings for a named
// notification kind. Read-only on the delivery path; managed via the
// admin endpoints.
type NotificationTemplate struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Type            string    `gorm:"type:varchar(50);not null" json:"type"`
	TitleTemplate   string    `gorm:"type:varchar(200);not null" json:"title_template"`
	MessageTemplate string    `gorm:"type:text;not null" json:"message_template"`
	EmailTemplate   *string   `gorm:"type:text" json:"email_template,omitempty"`
	SMSTemplate     *string   `gorm:"type:varchar(500)" json:"sms_template,omitempty"`
	PushTemplate    *string   `gorm:"type:varchar(500)" json:"push_template,omitempty"`
	DefaultPriority string    `gorm:"type:varchar(20);not null;default:'normal'" json:"default_priority"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}
