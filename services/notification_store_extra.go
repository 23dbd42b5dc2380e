package services

import (
	"errors"
	"time"

	"github.com/smartcommerce/notification-service/models"
	"gorm.io/gorm"
)

// Delivery rows

func (s *NotificationStore) AppendDelivery(d *models.NotificationDelivery) error {
	return s.DB.Create(d).Error
}

func (s *NotificationStore) UpdateDelivery(d *models.NotificationDelivery) error {
	return s.DB.Save(d).Error
}

// DeliveriesFor returns all attempts for a notification, oldest first.
func (s *NotificationStore) DeliveriesFor(notificationID uint) ([]models.NotificationDelivery, error) {
	var rows []models.NotificationDelivery
	err := s.DB.Where("notification_id = ?", notificationID).
		Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// Templates

func (s *NotificationStore) CreateTemplate(t *models.NotificationTemplate) error {
	if t.Name == "" || t.Type == "" || t.TitleTemplate == "" || t.MessageTemplate == "" {
		return errors.New("name, type, title_template and message_template are required")
	}
	if t.DefaultPriority == "" {
		t.DefaultPriority = models.PriorityNormal
	}
	return s.DB.Create(t).Error
}

// GetActiveTemplate resolves a template name on the delivery path. Inactive
// templates are treated the same as missing ones.
func (s *NotificationStore) GetActiveTemplate(name string) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	err := s.DB.Where("name = ? AND is_active = ?", name, true).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateUnknown
		}
		return nil, err
	}
	return &t, nil
}

func (s *NotificationStore) ListTemplates() ([]models.NotificationTemplate, error) {
	var templates []models.NotificationTemplate
	err := s.DB.Order("created_at DESC").Find(&templates).Error
	return templates, err
}

func (s *NotificationStore) UpdateTemplate(t *models.NotificationTemplate) error {
	var existing models.NotificationTemplate
	if err := s.DB.First(&existing, t.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	t.CreatedAt = existing.CreatedAt
	return s.DB.Save(t).Error
}

func (s *NotificationStore) DeleteTemplate(id uint) error {
	res := s.DB.Delete(&models.NotificationTemplate{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Preferences

// GetPreference returns the stored row for (user, type), or the default
// policy when none exists.
func (s *NotificationStore) GetPreference(userID uint, notifType string) (models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := s.DB.Where("user_id = ? AND type = ?", userID, notifType).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultPreference(userID, notifType), nil
		}
		return pref, err
	}
	return pref, nil
}

func (s *NotificationStore) ListPreferences(userID uint) ([]models.NotificationPreference, error) {
	var prefs []models.NotificationPreference
	err := s.DB.Where("user_id = ?", userID).Order("type ASC").Find(&prefs).Error
	return prefs, err
}

// UpsertPreference writes the explicit channel flags for (user, type).
func (s *NotificationStore) UpsertPreference(pref *models.NotificationPreference) error {
	if pref.UserID == 0 {
		return ErrMissingUserID
	}
	if pref.Type == "" {
		return ErrMissingType
	}

	var existing models.NotificationPreference
	err := s.DB.Where("user_id = ? AND type = ?", pref.UserID, pref.Type).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.DB.Create(pref).Error
		}
		return err
	}
	pref.ID = existing.ID
	pref.CreatedAt = existing.CreatedAt
	return s.DB.Save(pref).Error
}

// Subscriptions

// RegisterSubscription stores a push endpoint. A previous active row for the
// same (user, platform, device) is deactivated, not deleted, so delivery
// history keeps pointing at real rows.
func (s *NotificationStore) RegisterSubscription(sub *models.NotificationSubscription) error {
	if sub.UserID == 0 {
		return ErrMissingUserID
	}
	if sub.Platform == "" || sub.Endpoint == "" {
		return errors.New("platform and endpoint are required")
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.NotificationSubscription{}).
			Where("user_id = ? AND platform = ? AND device_id = ? AND is_active = ?",
				sub.UserID, sub.Platform, sub.DeviceID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		sub.IsActive = true
		now := time.Now()
		sub.LastUsedAt = &now
		return tx.Create(sub).Error
	})
}

func (s *NotificationStore) ListActiveSubscriptions(userID uint) ([]models.NotificationSubscription, error) {
	var subs []models.NotificationSubscription
	err := s.DB.Where("user_id = ? AND is_active = ?", userID, true).Find(&subs).Error
	return subs, err
}

func (s *NotificationStore) DeactivateSubscription(userID, id uint) error {
	res := s.DB.Model(&models.NotificationSubscription{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchSubscription bumps last_used_at after a successful push send.
func (s *NotificationStore) TouchSubscription(id uint) error {
	return s.DB.Model(&models.NotificationSubscription{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

// PruneStaleSubscriptions deactivates subscriptions unused since the cutoff.
func (s *NotificationStore) PruneStaleSubscriptions(cutoff time.Time) (int64, error) {
	res := s.DB.Model(&models.NotificationSubscription{}).
		Where("is_active = ? AND (last_used_at IS NULL OR last_used_at < ?)", true, cutoff).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// Sweep selections

// DueScheduled returns pending notifications whose schedule time has passed,
// oldest first, capped at limit.
func (s *NotificationStore) DueScheduled(now time.Time, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.DB.Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
		models.NotificationStatusPending, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&notifs).Error
	return notifs, err
}

// RetryableFailed returns failed notifications still under the retry cap whose
// next attempt is unset or due, capped at limit.
func (s *NotificationStore) RetryableFailed(now time.Time, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.DB.Where("status = ? AND retry_count < ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
		models.NotificationStatusFailed, models.MaxRetryCount, now).
		Order("updated_at ASC").
		Limit(limit).
		Find(&notifs).Error
	return notifs, err
}
