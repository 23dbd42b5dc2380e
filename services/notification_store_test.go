package services

import (
	"testing"
	"time"

	"github.com/smartcommerce/notification-service/models"
	"github.com/stretchr/testify/assert"
)

func makeNotification(userID uint, notifType string) *models.Notification {
	return &models.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     "Test",
		Message:   "Test message",
		SendInApp: true,
	}
}

func TestCreateNotificationValidation(t *testing.T) {
	store := setupTestStore(t)

	err := store.CreateNotification(&models.Notification{Type: "order", Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrMissingUserID)

	err = store.CreateNotification(&models.Notification{UserID: 1, Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrMissingType)

	err = store.CreateNotification(&models.Notification{UserID: 1, Type: "order", Message: "m"})
	assert.ErrorIs(t, err, ErrMissingTitle)

	err = store.CreateNotification(&models.Notification{UserID: 1, Type: "order", Title: "t"})
	assert.ErrorIs(t, err, ErrMissingMessage)

	n := makeNotification(1, "order")
	assert.NoError(t, store.CreateNotification(n))
	assert.Equal(t, models.NotificationStatusPending, n.Status)
	assert.Equal(t, models.PriorityNormal, n.Priority)
}

func TestListByUserNewestFirstAndFiltered(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		n := makeNotification(1, "order")
		n.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		assert.NoError(t, store.CreateNotification(n))
	}
	promo := makeNotification(1, "promo")
	assert.NoError(t, store.CreateNotification(promo))
	other := makeNotification(2, "order")
	assert.NoError(t, store.CreateNotification(other))

	notifs, total, err := store.ListByUser(1, ListFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(4), total)
	for i := 1; i < len(notifs); i++ {
		assert.False(t, notifs[i].CreatedAt.After(notifs[i-1].CreatedAt), "expected newest first")
	}

	notifs, total, err = store.ListByUser(1, ListFilter{Type: "promo"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "promo", notifs[0].Type)

	isRead := false
	_, total, err = store.ListByUser(1, ListFilter{IsRead: &isRead})
	assert.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestDeleteNotificationCascadesDeliveries(t *testing.T) {
	store := setupTestStore(t)

	n := makeNotification(1, "order")
	assert.NoError(t, store.CreateNotification(n))
	assert.NoError(t, store.AppendDelivery(&models.NotificationDelivery{
		NotificationID: n.ID,
		Channel:        models.ChannelInApp,
		Recipient:      "user_1",
		Status:         models.DeliveryStatusSent,
	}))

	assert.NoError(t, store.DeleteNotification(1, n.ID))

	rows, err := store.DeliveriesFor(n.ID)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteNotificationWrongOwner(t *testing.T) {
	store := setupTestStore(t)

	n := makeNotification(1, "order")
	assert.NoError(t, store.CreateNotification(n))

	assert.ErrorIs(t, store.DeleteNotification(2, n.ID), ErrNotFound)
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	}

	updated, err := store.MarkAllRead(1)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	notifs, _, err := store.ListByUser(1, ListFilter{})
	assert.NoError(t, err)
	firstReadAts := make(map[uint]time.Time)
	for _, n := range notifs {
		assert.True(t, n.IsRead)
		assert.NotNil(t, n.ReadAt)
		firstReadAts[n.ID] = *n.ReadAt
	}

	time.Sleep(10 * time.Millisecond)
	updated, err = store.MarkAllRead(1)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), updated, "second pass must not touch already-read rows")

	notifs, _, err = store.ListByUser(1, ListFilter{})
	assert.NoError(t, err)
	for _, n := range notifs {
		assert.Equal(t, firstReadAts[n.ID].Unix(), n.ReadAt.Unix(), "ReadAt must not change on second call")
	}
}

func TestMarkReadDistinguishesMissingFromAlreadyRead(t *testing.T) {
	store := setupTestStore(t)

	n := makeNotification(1, "order")
	assert.NoError(t, store.CreateNotification(n))

	assert.NoError(t, store.MarkRead(1, n.ID))
	assert.NoError(t, store.MarkRead(1, n.ID), "marking an already-read row is not an error")
	assert.ErrorIs(t, store.MarkRead(1, 9999), ErrNotFound)
}

func TestCountUnread(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 4; i++ {
		assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	}
	notifs, _, _ := store.ListByUser(1, ListFilter{})
	assert.NoError(t, store.MarkRead(1, notifs[0].ID))

	count, err := store.CountUnread(1)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPreferenceDefaultAndUpsert(t *testing.T) {
	store := setupTestStore(t)

	pref, err := store.GetPreference(1, "promo")
	assert.NoError(t, err)
	assert.True(t, pref.PushEnabled)
	assert.True(t, pref.EmailEnabled)
	assert.False(t, pref.SMSEnabled, "SMS defaults to deny")
	assert.True(t, pref.InAppEnabled)

	custom := models.NotificationPreference{
		UserID:       1,
		Type:         "promo",
		PushEnabled:  false,
		EmailEnabled: false,
		SMSEnabled:   true,
		InAppEnabled: true,
		Timezone:     "UTC",
	}
	assert.NoError(t, store.UpsertPreference(&custom))

	pref, err = store.GetPreference(1, "promo")
	assert.NoError(t, err)
	assert.False(t, pref.PushEnabled)
	assert.True(t, pref.SMSEnabled, "explicit flag governs over default")

	// Upsert again flips it back without creating a second row
	custom.SMSEnabled = false
	assert.NoError(t, store.UpsertPreference(&custom))
	prefs, err := store.ListPreferences(1)
	assert.NoError(t, err)
	assert.Len(t, prefs, 1)
}

func TestRegisterSubscriptionSupersedesPrevious(t *testing.T) {
	store := setupTestStore(t)

	first := &models.NotificationSubscription{
		UserID: 1, Platform: "web", DeviceID: "dev-1", Endpoint: "https://push.example/a",
	}
	assert.NoError(t, store.RegisterSubscription(first))

	second := &models.NotificationSubscription{
		UserID: 1, Platform: "web", DeviceID: "dev-1", Endpoint: "https://push.example/b",
	}
	assert.NoError(t, store.RegisterSubscription(second))

	active, err := store.ListActiveSubscriptions(1)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	// The superseded row still exists, just inactive
	var count int64
	store.DB.Model(&models.NotificationSubscription{}).Where("user_id = ?", 1).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestPruneStaleSubscriptions(t *testing.T) {
	store := setupTestStore(t)

	fresh := &models.NotificationSubscription{
		UserID: 1, Platform: "web", DeviceID: "dev-1", Endpoint: "https://push.example/a",
	}
	assert.NoError(t, store.RegisterSubscription(fresh))

	stale := &models.NotificationSubscription{
		UserID: 1, Platform: "ios", DeviceID: "dev-2", Endpoint: "https://push.example/b",
	}
	assert.NoError(t, store.RegisterSubscription(stale))
	old := time.Now().Add(-40 * 24 * time.Hour)
	store.DB.Model(stale).Update("last_used_at", old)

	pruned, err := store.PruneStaleSubscriptions(time.Now().Add(-30 * 24 * time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	active, err := store.ListActiveSubscriptions(1)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)
}

func TestGetActiveTemplate(t *testing.T) {
	store := setupTestStore(t)

	tmpl := &models.NotificationTemplate{
		Name:            "order_shipped",
		Type:            "order",
		TitleTemplate:   "Order {OrderNumber} shipped",
		MessageTemplate: "Your order {OrderNumber} is on its way",
		IsActive:        true,
	}
	assert.NoError(t, store.CreateTemplate(tmpl))

	got, err := store.GetActiveTemplate("order_shipped")
	assert.NoError(t, err)
	assert.Equal(t, tmpl.ID, got.ID)

	_, err = store.GetActiveTemplate("nope")
	assert.ErrorIs(t, err, ErrTemplateUnknown)

	tmpl.IsActive = false
	assert.NoError(t, store.UpdateTemplate(tmpl))
	_, err = store.GetActiveTemplate("order_shipped")
	assert.ErrorIs(t, err, ErrTemplateUnknown, "inactive templates are treated as missing")
}
