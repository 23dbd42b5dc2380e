package services

import (
	"fmt"
	"testing"

	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestStore opens a fresh in-memory database per test.
func setupTestStore(t *testing.T) *NotificationStore {
	t.Helper()
	utils.InitLogger()

	// One named in-memory database per test; shared cache keeps every pooled
	// connection on the same database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Notification{},
		&models.NotificationDelivery{},
		&models.NotificationTemplate{},
		&models.NotificationPreference{},
		&models.NotificationSubscription{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewNotificationStore(db)
}

// Fake channel senders recording what they were asked to send.

type fakeEmailSender struct {
	sent   []string
	bodies []string
	fail   bool
}

func (f *fakeEmailSender) SendEmail(to, subject, body string) error {
	if f.fail {
		return fmt.Errorf("smtp relay unavailable")
	}
	f.sent = append(f.sent, to)
	f.bodies = append(f.bodies, body)
	return nil
}

type fakeSmsSender struct {
	sent     []string
	messages []string
	fail     bool
}

func (f *fakeSmsSender) SendSms(to, message string) error {
	if f.fail {
		return fmt.Errorf("sms gateway unavailable")
	}
	f.sent = append(f.sent, to)
	f.messages = append(f.messages, message)
	return nil
}

type fakePushSender struct {
	sent []uint
	fail bool
}

func (f *fakePushSender) SendPush(sub models.NotificationSubscription, title, message string, data models.JSONMap) error {
	if f.fail {
		return fmt.Errorf("push gateway unavailable")
	}
	f.sent = append(f.sent, sub.ID)
	return nil
}

type fakeDirectory struct{}

func (fakeDirectory) Email(userID uint) (string, error) {
	return fmt.Sprintf("user%d@example.com", userID), nil
}

func (fakeDirectory) Phone(userID uint) (string, error) {
	return fmt.Sprintf("+1555000%04d", userID), nil
}
