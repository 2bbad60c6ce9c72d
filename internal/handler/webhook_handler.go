package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookRequest defines the structure for webhook create/update requests.
// An empty events list subscribes to every event.
type WebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}

// CreateWebhook registers an HTTP endpoint for the tenant's events. The
// signing secret is generated server-side and returned once, here.
func CreateWebhook(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("webhooks", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	hook := model.Webhook{
		ClientID: clientID,
		URL:      req.URL,
		Events:   req.Events,
		Active:   active,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&hook); result.Error != nil {
		log.Error("Failed to create webhook", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create webhook"})
	}

	// The secret is exposed only in the creation response.
	return c.JSON(http.StatusCreated, echo.Map{
		"id":     hook.ID,
		"url":    hook.URL,
		"events": hook.Events,
		"active": hook.Active,
		"secret": hook.Secret,
	})
}

// ListWebhooks lists the tenant's webhooks without secrets.
func ListWebhooks(c echo.Context) error {
	prometheus.RecordOperation("webhooks", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var hooks []model.Webhook
	err := store.ListOwned(database.GetDB(), &hooks, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve webhooks"})
	}
	return c.JSON(http.StatusOK, hooks)
}

// UpdateWebhook updates a webhook's URL, event filter and active flag.
func UpdateWebhook(c echo.Context) error {
	prometheus.RecordOperation("webhooks", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook ID"})
	}

	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var hook model.Webhook
	if err := store.FindOwned(database.GetDB(), &hook, uint(id), clientID); err != nil {
		return scopedError(c, err, "webhook")
	}

	hook.URL = req.URL
	hook.Events = req.Events
	if req.Active != nil {
		hook.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&hook); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update webhook"})
	}
	return c.JSON(http.StatusOK, hook)
}

// DeleteWebhook stops all deliveries to an endpoint.
func DeleteWebhook(c echo.Context) error {
	prometheus.RecordOperation("webhooks", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Webhook{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "webhook")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "webhook deleted"})
}
