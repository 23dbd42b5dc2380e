package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/services"
	"github.com/smartcommerce/notification-service/utils"
)

type SubscriptionController struct {
	Store *services.NotificationStore
}

func NewSubscriptionController(store *services.NotificationStore) *SubscriptionController {
	return &SubscriptionController{Store: store}
}

type registerSubscriptionRequest struct {
	Platform string         `json:"platform" binding:"required"`
	DeviceID string         `json:"device_id" binding:"required"`
	Endpoint string         `json:"endpoint" binding:"required"`
	AuthKeys models.JSONMap `json:"auth_keys"`
}

// RegisterSubscription stores a push endpoint for the caller's device.
// An older registration for the same device is deactivated, not deleted.
func (sc *SubscriptionController) RegisterSubscription(c *gin.Context) {
	var body registerSubscriptionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	sub := models.NotificationSubscription{
		UserID:   currentUserID(c),
		Platform: body.Platform,
		DeviceID: body.DeviceID,
		Endpoint: body.Endpoint,
		AuthKeys: body.AuthKeys,
	}
	if err := sc.Store.RegisterSubscription(&sub); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Subscription registered", sub)
}

func (sc *SubscriptionController) ListSubscriptions(c *gin.Context) {
	subs, err := sc.Store.ListActiveSubscriptions(currentUserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Subscriptions", subs)
}

func (sc *SubscriptionController) DeactivateSubscription(c *gin.Context) {
	id, err := paramID(c, "sub_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := sc.Store.DeactivateSubscription(currentUserID(c), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Subscription deactivated", gin.H{"sub_id": id})
}
