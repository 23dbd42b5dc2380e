package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/realtime"
	"github.com/smartcommerce/notification-service/services"
	"github.com/smartcommerce/notification-service/utils"
)

type NotificationController struct {
	Store        *services.NotificationStore
	Cache        *services.UnreadCountCache
	Hub          *realtime.Hub
	Orchestrator *services.DeliveryOrchestrator
}

func NewNotificationController(store *services.NotificationStore, cache *services.UnreadCountCache,
	hub *realtime.Hub, orch *services.DeliveryOrchestrator) *NotificationController {
	return &NotificationController{
		Store:        store,
		Cache:        cache,
		Hub:          hub,
		Orchestrator: orch,
	}
}

type createNotificationRequest struct {
	UserID      uint           `json:"user_id" binding:"required"`
	Type        string         `json:"type" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	Priority    string         `json:"priority"`
	Category    *string        `json:"category"`
	ActionURL   *string        `json:"action_url"`
	Metadata    models.JSONMap `json:"metadata"`
	SendPush    bool           `json:"send_push"`
	SendEmail   bool           `json:"send_email"`
	SendSMS     bool           `json:"send_sms"`
	SendInApp   *bool          `json:"send_in_app"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	ExpiresAt   *time.Time     `json:"expires_at"`
}

func (r *createNotificationRequest) toModel() models.Notification {
	sendInApp := true
	if r.SendInApp != nil {
		sendInApp = *r.SendInApp
	}
	return models.Notification{
		UserID:      r.UserID,
		Type:        r.Type,
		Title:       r.Title,
		Message:     r.Message,
		Priority:    r.Priority,
		Category:    r.Category,
		ActionURL:   r.ActionURL,
		Metadata:    r.Metadata,
		SendPush:    r.SendPush,
		SendEmail:   r.SendEmail,
		SendSMS:     r.SendSMS,
		SendInApp:   sendInApp,
		ScheduledAt: r.ScheduledAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// CreateNotification -> persist, live-push, then fan out across channels.
// The live push happens before the channel sends are dispatched; delivery is
// skipped when the notification is scheduled for later.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	var body createNotificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	notif := body.toModel()
	if err := nc.Store.CreateNotification(&notif); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	nc.Cache.Invalidate(c.Request.Context(), notif.UserID)
	nc.Hub.BroadcastNotification(c.Request.Context(), notif.UserID, notif)
	nc.pushUnreadCount(c, notif.UserID)

	if notif.ScheduledAt == nil || !notif.ScheduledAt.After(time.Now()) {
		if err := nc.Orchestrator.Deliver(&notif); err != nil {
			// Orchestration failure is recovered by the retry sweep; the
			// create itself succeeded.
			utils.ErrorLogger.Printf("delivery deferred to retry sweep: %v", err)
		}
	}

	utils.RespondJSON(c, http.StatusCreated, "Notification created", notif)
}

// bulkNotificationRequest targets users via user_ids only; there is no
// top-level user_id the way the single-create payload has.
type bulkNotificationRequest struct {
	UserIDs     []uint         `json:"user_ids" binding:"required,min=1"`
	Type        string         `json:"type" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	Priority    string         `json:"priority"`
	Category    *string        `json:"category"`
	ActionURL   *string        `json:"action_url"`
	Metadata    models.JSONMap `json:"metadata"`
	SendPush    bool           `json:"send_push"`
	SendEmail   bool           `json:"send_email"`
	SendSMS     bool           `json:"send_sms"`
	SendInApp   *bool          `json:"send_in_app"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	ExpiresAt   *time.Time     `json:"expires_at"`
}

func (r *bulkNotificationRequest) toModel(userID uint) models.Notification {
	sendInApp := true
	if r.SendInApp != nil {
		sendInApp = *r.SendInApp
	}
	return models.Notification{
		UserID:      userID,
		Type:        r.Type,
		Title:       r.Title,
		Message:     r.Message,
		Priority:    r.Priority,
		Category:    r.Category,
		ActionURL:   r.ActionURL,
		Metadata:    r.Metadata,
		SendPush:    r.SendPush,
		SendEmail:   r.SendEmail,
		SendSMS:     r.SendSMS,
		SendInApp:   sendInApp,
		ScheduledAt: r.ScheduledAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// CreateBulkNotifications creates one notification per target user and
// delivers every one of them. (The legacy behavior delivered only a single
// representative member of the batch; that was a defect, not a contract.)
func (nc *NotificationController) CreateBulkNotifications(c *gin.Context) {
	var body bulkNotificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	batch := make([]*models.Notification, 0, len(body.UserIDs))
	for _, userID := range body.UserIDs {
		n := body.toModel(userID)
		batch = append(batch, &n)
	}
	if err := nc.Store.CreateNotifications(batch); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	created := make([]models.Notification, 0, len(batch))
	for _, n := range batch {
		nc.Cache.Invalidate(c.Request.Context(), n.UserID)
		nc.Hub.BroadcastNotification(c.Request.Context(), n.UserID, *n)
		nc.pushUnreadCount(c, n.UserID)

		if n.ScheduledAt == nil || !n.ScheduledAt.After(time.Now()) {
			if err := nc.Orchestrator.Deliver(n); err != nil {
				utils.ErrorLogger.Printf("bulk delivery deferred to retry sweep: %v", err)
			}
		}
		created = append(created, *n)
	}

	utils.RespondJSON(c, http.StatusCreated, "Notifications created", created)
}

type templateNotificationRequest struct {
	TemplateName string                 `json:"template_name" binding:"required"`
	UserID       uint                   `json:"user_id" binding:"required"`
	Params       map[string]interface{} `json:"params"`
	SendPush     bool                   `json:"send_push"`
	SendEmail    bool                   `json:"send_email"`
	SendSMS      bool                   `json:"send_sms"`
	SendInApp    *bool                  `json:"send_in_app"`
	ScheduledAt  *time.Time             `json:"scheduled_at"`
}

// CreateFromTemplate renders a named template with the given parameters and
// creates the resulting notification. Unknown template names are rejected at
// the boundary; nothing is persisted.
func (nc *NotificationController) CreateFromTemplate(c *gin.Context) {
	var body templateNotificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tmpl, err := nc.Store.GetActiveTemplate(body.TemplateName)
	if err != nil {
		if errors.Is(err, services.ErrTemplateUnknown) {
			utils.RespondError(c, http.StatusBadRequest, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	sendInApp := true
	if body.SendInApp != nil {
		sendInApp = *body.SendInApp
	}

	// Channel-specific bodies ride along in metadata; the orchestrator picks
	// them over the base message per channel.
	meta := models.JSONMap{}
	if tmpl.EmailTemplate != nil {
		meta[models.MetaEmailBody] = services.RenderTemplate(*tmpl.EmailTemplate, body.Params)
	}
	if tmpl.SMSTemplate != nil {
		meta[models.MetaSMSBody] = services.RenderTemplate(*tmpl.SMSTemplate, body.Params)
	}
	if tmpl.PushTemplate != nil {
		meta[models.MetaPushBody] = services.RenderTemplate(*tmpl.PushTemplate, body.Params)
	}

	notif := models.Notification{
		UserID:      body.UserID,
		Type:        tmpl.Type,
		Title:       services.RenderTemplate(tmpl.TitleTemplate, body.Params),
		Message:     services.RenderTemplate(tmpl.MessageTemplate, body.Params),
		Priority:    tmpl.DefaultPriority,
		Metadata:    meta,
		SendPush:    body.SendPush,
		SendEmail:   body.SendEmail,
		SendSMS:     body.SendSMS,
		SendInApp:   sendInApp,
		ScheduledAt: body.ScheduledAt,
	}
	if err := nc.Store.CreateNotification(&notif); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	nc.Cache.Invalidate(c.Request.Context(), notif.UserID)
	nc.Hub.BroadcastNotification(c.Request.Context(), notif.UserID, notif)
	nc.pushUnreadCount(c, notif.UserID)

	if notif.ScheduledAt == nil || !notif.ScheduledAt.After(time.Now()) {
		if err := nc.Orchestrator.Deliver(&notif); err != nil {
			utils.ErrorLogger.Printf("templated delivery deferred to retry sweep: %v", err)
		}
	}

	utils.RespondJSON(c, http.StatusCreated, "Notification created", notif)
}

// ListNotifications -> the caller's notifications, newest first, filterable
// by type and read state.
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	userID := currentUserID(c)

	filter := services.ListFilter{Type: c.Query("type")}
	if v := c.Query("is_read"); v != "" {
		isRead := v == "true"
		filter.IsRead = &isRead
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	notifs, total, err := nc.Store.ListByUser(userID, filter)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notifications", gin.H{
		"notifications": notifs,
		"total":         total,
		"page":          filter.Page,
	})
}

func (nc *NotificationController) GetNotificationByID(c *gin.Context) {
	id, err := paramID(c, "notif_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	notif, err := nc.Store.GetNotification(id)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if notif.UserID != currentUserID(c) && !hasRole(c, realtime.RoleAdmin) {
		utils.RespondError(c, http.StatusForbidden, errors.New("not your notification"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification detail", notif)
}

// GetUnreadCount -> read-through cached unread count for the caller
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	userID := currentUserID(c)
	count, err := nc.Cache.Get(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unread count", gin.H{"count": count})
}

// MarkRead flags one notification read, then refreshes the cached count and
// broadcasts it to the user's live connections.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	userID := currentUserID(c)
	id, err := paramID(c, "notif_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := nc.Store.MarkRead(userID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	nc.afterReadStateChange(c, userID)
	utils.RespondJSON(c, http.StatusOK, "Notification marked read", gin.H{"notif_id": id})
}

type idsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

func (nc *NotificationController) MarkManyRead(c *gin.Context) {
	userID := currentUserID(c)
	var body idsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := nc.Store.MarkManyRead(userID, body.IDs)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	nc.afterReadStateChange(c, userID)
	utils.RespondJSON(c, http.StatusOK, "Notifications marked read", gin.H{"updated": updated})
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	userID := currentUserID(c)

	updated, err := nc.Store.MarkAllRead(userID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	nc.afterReadStateChange(c, userID)
	utils.RespondJSON(c, http.StatusOK, "All notifications marked read", gin.H{"updated": updated})
}

func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	userID := currentUserID(c)
	id, err := paramID(c, "notif_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := nc.Store.DeleteNotification(userID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	nc.afterReadStateChange(c, userID)
	utils.RespondJSON(c, http.StatusOK, "Notification deleted", gin.H{"notif_id": id})
}

func (nc *NotificationController) DeleteNotifications(c *gin.Context) {
	userID := currentUserID(c)
	var body idsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	deleted, err := nc.Store.DeleteNotifications(userID, body.IDs)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	nc.afterReadStateChange(c, userID)
	utils.RespondJSON(c, http.StatusOK, "Notifications deleted", gin.H{"deleted": deleted})
}

// ResendNotification is the manual re-trigger for a notification that
// exhausted its retries. Admin only (enforced in the router).
func (nc *NotificationController) ResendNotification(c *gin.Context) {
	id, err := paramID(c, "notif_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	notif, err := nc.Orchestrator.Resend(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.ErrorLogger.Printf("manual resend failed: %v", err)
	}
	utils.RespondJSON(c, http.StatusOK, "Resend triggered", notif)
}

// afterReadStateChange invalidates the cached count, recomputes it, and
// pushes the fresh value to the user's live connections.
func (nc *NotificationController) afterReadStateChange(c *gin.Context, userID uint) {
	nc.Cache.Invalidate(c.Request.Context(), userID)
	nc.pushUnreadCount(c, userID)
}

func (nc *NotificationController) pushUnreadCount(c *gin.Context, userID uint) {
	count, err := nc.Cache.Get(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorLogger.Printf("unread recount failed for user %d: %v", userID, err)
		return
	}
	nc.Hub.BroadcastUnreadCount(c.Request.Context(), userID, count)
}
