package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/utils"
)

// DeliveryOrchestrator fans a notification out across its requested channels.
// Channel attempts run concurrently and independently; the notification's
// aggregate status is written only after every attempt has finished.
//
// Aggregate semantics: "sent" means all attempts completed, not all attempts
// succeeded. A notification whose every channel failed still ends up "sent"
// at the notification level; per-channel failure lives on delivery rows.
// Changing this would change what producers observe, so it stays.
type DeliveryOrchestrator struct {
	Store     *NotificationStore
	Gate      *PreferenceGate
	Email     EmailSender
	Sms       SmsSender
	Push      PushSender
	Directory UserDirectory
}

func NewDeliveryOrchestrator(store *NotificationStore, gate *PreferenceGate,
	email EmailSender, sms SmsSender, push PushSender, dir UserDirectory) *DeliveryOrchestrator {
	return &DeliveryOrchestrator{
		Store:     store,
		Gate:      gate,
		Email:     email,
		Sms:       sms,
		Push:      push,
		Directory: dir,
	}
}

// Deliver runs the fan-out for one notification and blocks until every
// channel attempt has completed. An orchestration-level fault (as opposed to
// a per-channel send failure) marks the notification failed and schedules a
// backoff retry.
func (o *DeliveryOrchestrator) Deliver(n *models.Notification) error {
	now := time.Now()
	n.Status = models.NotificationStatusSending
	n.SentAt = &now
	if err := o.Store.UpdateNotification(n); err != nil {
		return o.markOrchestrationFailure(n, err)
	}

	var allowed []string
	for _, channel := range n.RequestedChannels() {
		if o.Gate.Allowed(n.UserID, channel, n.Type) {
			allowed = append(allowed, channel)
		} else {
			utils.InfoLogger.Printf("channel %s suppressed by preference for user %d (type %s)",
				channel, n.UserID, n.Type)
		}
	}

	var wg sync.WaitGroup
	for _, channel := range allowed {
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()
			o.attemptChannel(n, ch)
		}(channel)
	}
	wg.Wait()

	n.Status = models.NotificationStatusSent
	n.FailureReason = nil
	if err := o.Store.UpdateNotification(n); err != nil {
		return o.markOrchestrationFailure(n, err)
	}
	return nil
}

// Resend is the explicit manual re-trigger for a permanently failed
// notification. It resets the retry budget before delivering again.
func (o *DeliveryOrchestrator) Resend(id uint) (*models.Notification, error) {
	n, err := o.Store.GetNotification(id)
	if err != nil {
		return nil, err
	}
	n.RetryCount = 0
	n.NextRetryAt = nil
	n.FailureReason = nil
	if err := o.Store.UpdateNotification(n); err != nil {
		return nil, err
	}
	if err := o.Deliver(n); err != nil {
		return n, err
	}
	return n, nil
}

// attemptChannel runs one independent send. A failure here is recorded on the
// delivery row and absorbed; it never propagates to sibling channels or to
// the create call.
func (o *DeliveryOrchestrator) attemptChannel(n *models.Notification, channel string) {
	delivery := &models.NotificationDelivery{
		NotificationID: n.ID,
		Channel:        channel,
		Recipient:      fmt.Sprintf("user_%d", n.UserID),
		Status:         models.DeliveryStatusSending,
	}

	var sendErr error
	switch channel {
	case models.ChannelEmail:
		var to string
		to, sendErr = o.Directory.Email(n.UserID)
		if sendErr == nil {
			delivery.Recipient = to
			sendErr = o.Email.SendEmail(to, n.Title, n.ChannelBody(models.ChannelEmail))
		}
	case models.ChannelSMS:
		var to string
		to, sendErr = o.Directory.Phone(n.UserID)
		if sendErr == nil {
			delivery.Recipient = to
			sendErr = o.Sms.SendSms(to, n.ChannelBody(models.ChannelSMS))
		}
	case models.ChannelPush:
		sendErr = o.sendPush(n)
	case models.ChannelInApp:
		// The stored notification is the in-app delivery; reaching this
		// point means it is already persisted and queryable.
		sendErr = nil
	default:
		sendErr = fmt.Errorf("unknown channel %q", channel)
	}

	now := time.Now()
	if sendErr != nil {
		reason := sendErr.Error()
		delivery.Status = models.DeliveryStatusFailed
		delivery.FailureReason = &reason
		utils.ErrorLogger.Printf("delivery failed: notification=%d channel=%s: %v", n.ID, channel, sendErr)
	} else {
		delivery.Status = models.DeliveryStatusSent
		delivery.SentAt = &now
		delivery.ProviderRef = uuid.NewString()
	}

	if err := o.Store.AppendDelivery(delivery); err != nil {
		utils.ErrorLogger.Printf("failed to record delivery: notification=%d channel=%s: %v", n.ID, channel, err)
	}
}

// sendPush fans out to every active subscription of the user. The channel
// attempt succeeds when at least one endpoint accepts.
func (o *DeliveryOrchestrator) sendPush(n *models.Notification) error {
	subs, err := o.Store.ListActiveSubscriptions(n.UserID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no active push subscriptions for user %d", n.UserID)
	}

	delivered := 0
	for _, sub := range subs {
		if err := o.Push.SendPush(sub, n.Title, n.ChannelBody(models.ChannelPush), n.Metadata); err != nil {
			utils.ErrorLogger.Printf("push endpoint rejected: subscription=%d: %v", sub.ID, err)
			continue
		}
		delivered++
		if err := o.Store.TouchSubscription(sub.ID); err != nil {
			utils.ErrorLogger.Printf("failed to touch subscription %d: %v", sub.ID, err)
		}
	}
	if delivered == 0 {
		return fmt.Errorf("all %d push endpoints rejected", len(subs))
	}
	return nil
}

// markOrchestrationFailure moves the notification to failed and schedules the
// next attempt with exponential backoff: 2^retryCount minutes after the
// failure, counting the attempt that just failed. After MaxRetryCount the
// notification stays failed until Resend.
func (o *DeliveryOrchestrator) markOrchestrationFailure(n *models.Notification, cause error) error {
	reason := cause.Error()
	n.Status = models.NotificationStatusFailed
	n.FailureReason = &reason
	n.RetryCount++
	if n.RetryCount < models.MaxRetryCount {
		next := time.Now().Add(BackoffDelay(n.RetryCount))
		n.NextRetryAt = &next
	} else {
		n.NextRetryAt = nil
	}

	if err := o.Store.UpdateNotification(n); err != nil {
		utils.ErrorLogger.Printf("failed to persist failure state for notification %d: %v", n.ID, err)
	}
	return fmt.Errorf("delivery orchestration failed for notification %d: %w", n.ID, cause)
}

// BackoffDelay -> 2^attempt minutes
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Minute
}
