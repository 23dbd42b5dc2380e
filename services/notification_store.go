package services

import (
	"errors"
	"time"

	"github.com/smartcommerce/notification-service/models"
	"gorm.io/gorm"
)

var (
	ErrMissingUserID   = errors.New("user_id is required")
	ErrMissingTitle    = errors.New("title is required")
	ErrMissingMessage  = errors.New("message is required")
	ErrMissingType     = errors.New("type is required")
	ErrTemplateUnknown = errors.New("template not found or inactive")
	ErrNotFound        = errors.New("record not found")
)

// NotificationStore is the persistence layer. It performs no delivery or
// broadcast side effects.
type NotificationStore struct {
	DB *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{DB: db}
}

// ListFilter narrows ListByUser. Zero values mean "no filter".
type ListFilter struct {
	Type     string
	IsRead   *bool
	Page     int
	PageSize int
}

func (s *NotificationStore) CreateNotification(n *models.Notification) error {
	if err := validateNotification(n); err != nil {
		return err
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	return s.DB.Create(n).Error
}

// CreateNotifications persists a batch in one transaction. Either the whole
// batch is stored or none of it.
func (s *NotificationStore) CreateNotifications(batch []*models.Notification) error {
	for _, n := range batch {
		if err := validateNotification(n); err != nil {
			return err
		}
		if n.Priority == "" {
			n.Priority = models.PriorityNormal
		}
		if n.Status == "" {
			n.Status = models.NotificationStatusPending
		}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, n := range batch {
			if err := tx.Create(n).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *NotificationStore) GetNotification(id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.Preload("Deliveries").First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListByUser returns a user's notifications newest-first with the total count
// before pagination.
func (s *NotificationStore) ListByUser(userID uint, filter ListFilter) ([]models.Notification, int64, error) {
	q := s.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.IsRead != nil {
		q = q.Where("is_read = ?", *filter.IsRead)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	var notifs []models.Notification
	err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&notifs).Error
	return notifs, total, err
}

func (s *NotificationStore) UpdateNotification(n *models.Notification) error {
	return s.DB.Save(n).Error
}

// DeleteNotification removes one of the user's notifications along with its
// delivery rows.
func (s *NotificationStore) DeleteNotification(userID, id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("notification_id = ?", id).Delete(&models.NotificationDelivery{}).Error
	})
}

// DeleteNotifications removes several of the user's notifications, cascading
// their delivery rows. IDs not owned by the user are skipped.
func (s *NotificationStore) DeleteNotifications(userID uint, ids []uint) (int64, error) {
	var deleted int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var owned []uint
		if err := tx.Model(&models.Notification{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}
		res := tx.Where("id IN ?", owned).Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Where("notification_id IN ?", owned).Delete(&models.NotificationDelivery{}).Error
	})
	return deleted, err
}

func (s *NotificationStore) CountUnread(userID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. Already-read rows keep their
// original ReadAt.
func (s *NotificationStore) MarkRead(userID, id uint) error {
	now := time.Now()
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish "not found" from "already read"
		var exists int64
		s.DB.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", id, userID).Count(&exists)
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// MarkManyRead flags several notifications as read, returning how many rows
// actually changed.
func (s *NotificationStore) MarkManyRead(userID uint, ids []uint) (int64, error) {
	now := time.Now()
	res := s.DB.Model(&models.Notification{}).
		Where("id IN ? AND user_id = ? AND is_read = ?", ids, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

// MarkAllRead flags every unread notification of the user as read.
// Running it twice is a no-op the second time.
func (s *NotificationStore) MarkAllRead(userID uint) (int64, error) {
	now := time.Now()
	res := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

func validateNotification(n *models.Notification) error {
	if n.UserID == 0 {
		return ErrMissingUserID
	}
	if n.Type == "" {
		return ErrMissingType
	}
	if n.Title == "" {
		return ErrMissingTitle
	}
	if n.Message == "" {
		return ErrMissingMessage
	}
	return nil
}
