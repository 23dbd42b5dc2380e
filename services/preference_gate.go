package services

import (
	"github.com/smartcommerce/notification-service/utils"
)

// PreferenceGate decides whether a channel send is permitted for a user and
// notification type. Quiet hours are stored as advisory data only and do not
// affect this decision.
type PreferenceGate struct {
	Store *NotificationStore
}

func NewPreferenceGate(store *NotificationStore) *PreferenceGate {
	return &PreferenceGate{Store: store}
}

// Allowed -> whether the channel is enabled for (user, type). Without a
// stored row the default applies: push, email and in-app allowed, SMS denied.
// A store error denies the send rather than guessing.
func (g *PreferenceGate) Allowed(userID uint, channel, notifType string) bool {
	pref, err := g.Store.GetPreference(userID, notifType)
	if err != nil {
		utils.ErrorLogger.Printf("preference lookup failed for user %d type %s: %v", userID, notifType, err)
		return false
	}
	return pref.ChannelEnabled(channel)
}
