package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/services"
	"github.com/smartcommerce/notification-service/utils"
)

// TemplateController manages notification templates. Admin only; the
// delivery path reads templates but never writes them.
type TemplateController struct {
	Store *services.NotificationStore
}

func NewTemplateController(store *services.NotificationStore) *TemplateController {
	return &TemplateController{Store: store}
}

func (tc *TemplateController) ListTemplates(c *gin.Context) {
	templates, err := tc.Store.ListTemplates()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Templates", templates)
}

type templateRequest struct {
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	TitleTemplate   string  `json:"title_template" binding:"required"`
	MessageTemplate string  `json:"message_template" binding:"required"`
	EmailTemplate   *string `json:"email_template"`
	SMSTemplate     *string `json:"sms_template"`
	PushTemplate    *string `json:"push_template"`
	DefaultPriority string  `json:"default_priority"`
	IsActive        *bool   `json:"is_active"` // omitted means active
}

func (r *templateRequest) toModel() models.NotificationTemplate {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.NotificationTemplate{
		Name:            r.Name,
		Type:            r.Type,
		TitleTemplate:   r.TitleTemplate,
		MessageTemplate: r.MessageTemplate,
		EmailTemplate:   r.EmailTemplate,
		SMSTemplate:     r.SMSTemplate,
		PushTemplate:    r.PushTemplate,
		DefaultPriority: r.DefaultPriority,
		IsActive:        active,
	}
}

func (tc *TemplateController) CreateTemplate(c *gin.Context) {
	var body templateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tmpl := body.toModel()
	if err := tc.Store.CreateTemplate(&tmpl); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Template created", tmpl)
}

func (tc *TemplateController) UpdateTemplate(c *gin.Context) {
	id, err := paramID(c, "template_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body templateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tmpl := body.toModel()
	tmpl.ID = id
	if err := tc.Store.UpdateTemplate(&tmpl); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Template updated", tmpl)
}

func (tc *TemplateController) DeleteTemplate(c *gin.Context) {
	id, err := paramID(c, "template_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := tc.Store.DeleteTemplate(id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Template deleted", gin.H{"template_id": id})
}
