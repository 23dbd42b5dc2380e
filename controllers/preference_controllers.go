package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/services"
	"github.com/smartcommerce/notification-service/utils"
)

type PreferenceController struct {
	Store *services.NotificationStore
}

func NewPreferenceController(store *services.NotificationStore) *PreferenceController {
	return &PreferenceController{Store: store}
}

// ListPreferences -> the caller's stored preference rows. Types without a
// row follow the default policy and are not listed.
func (pc *PreferenceController) ListPreferences(c *gin.Context) {
	prefs, err := pc.Store.ListPreferences(currentUserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preferences", prefs)
}

// GetPreference returns the effective preference for one type, falling back
// to the default policy when no row exists.
func (pc *PreferenceController) GetPreference(c *gin.Context) {
	pref, err := pc.Store.GetPreference(currentUserID(c), c.Param("type"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preference", pref)
}

type upsertPreferenceRequest struct {
	Type         string  `json:"type" binding:"required"`
	PushEnabled  bool    `json:"push_enabled"`
	EmailEnabled bool    `json:"email_enabled"`
	SMSEnabled   bool    `json:"sms_enabled"`
	InAppEnabled bool    `json:"in_app_enabled"`
	QuietStart   *string `json:"quiet_start"`
	QuietEnd     *string `json:"quiet_end"`
	Timezone     string  `json:"timezone"`
}

// UpsertPreference writes explicit channel flags for a notification type.
// Once a row exists its flags govern, regardless of the defaults.
func (pc *PreferenceController) UpsertPreference(c *gin.Context) {
	var body upsertPreferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tz := body.Timezone
	if tz == "" {
		tz = "UTC"
	}
	pref := models.NotificationPreference{
		UserID:       currentUserID(c),
		Type:         body.Type,
		PushEnabled:  body.PushEnabled,
		EmailEnabled: body.EmailEnabled,
		SMSEnabled:   body.SMSEnabled,
		InAppEnabled: body.InAppEnabled,
		QuietStart:   body.QuietStart,
		QuietEnd:     body.QuietEnd,
		Timezone:     tz,
	}
	if err := pc.Store.UpsertPreference(&pref); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preference saved", pref)
}
