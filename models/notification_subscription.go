package models

import "time"

// NotificationSubscription is a registered push endpoint for one device.
// A new registration for the same (user, platform, device) deactivates the
// previous row instead of deleting it, so delivery history stays intact.
type NotificationSubscription struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Platform   string     `gorm:"type:varchar(20);not null" json:"platform"` // web, ios, android
	DeviceID   string     `gorm:"type:varchar(100);not null" json:"device_id"`
	Endpoint   string     `gorm:"type:varchar(500);not null" json:"endpoint"`
	AuthKeys   JSONMap    `gorm:"type:text" json:"auth_keys,omitempty"`
	IsActive   bool       `gorm:"not null;default:true;index" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}
