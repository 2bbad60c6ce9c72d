package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/integration"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConnectIntegrationRequest carries the provider type and its credentials.
type ConnectIntegrationRequest struct {
	Type        string                  `json:"type" validate:"required,oneof=GOOGLE_ANALYTICS META_ADS WHATSAPP"`
	Credentials integration.Credentials `json:"credentials" validate:"required"`
}

// ConnectIntegration connects a provider for the tenant. Credentials are
// validated against the provider before being encrypted and stored; a
// failed validation persists the integration in the ERROR state so the
// failure is visible, and reports 400.
func ConnectIntegration(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("integrations", "connect")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if credCipher == nil {
		log.Error("Credential cipher not configured")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "integrations are not configured"})
	}

	var req ConnectIntegrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	provider, err := integrations.Get(req.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	encrypted, err := credCipher.EncryptCredentials(req.Credentials)
	if err != nil {
		log.Error("Failed to encrypt credentials", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store credentials"})
	}

	db := database.GetDB()
	var existing model.Integration
	result := db.Where("client_id = ? AND type = ?", clientID, req.Type).First(&existing)
	if result.Error == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "integration already exists"})
	}

	intg := model.Integration{
		ClientID:    clientID,
		Type:        req.Type,
		Credentials: encrypted,
	}

	testErr := provider.TestConnection(c.Request().Context(), req.Credentials)
	if testErr != nil {
		intg.Status = model.IntegrationStatusError
		intg.ErrorMessage = testErr.Error()
	} else {
		intg.Status = model.IntegrationStatusConnected
		intg.ErrorMessage = ""
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := db.Create(&intg); result.Error != nil {
		log.Error("Failed to create integration", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create integration"})
	}

	if testErr != nil {
		prometheus.IntegrationSyncCounter.WithLabelValues(req.Type, "failure").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":       testErr.Error(),
			"integration": intg,
		})
	}

	prometheus.IntegrationSyncCounter.WithLabelValues(req.Type, "success").Inc()
	log.Info("Integration connected", zap.String("type", req.Type), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, intg)
}

// ListIntegrations lists the tenant's integrations. Credentials are never
// serialized.
func ListIntegrations(c echo.Context) error {
	prometheus.RecordOperation("integrations", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var items []model.Integration
	err := store.ListOwned(database.GetDB(), &items, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("type asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve integrations"})
	}
	return c.JSON(http.StatusOK, items)
}

// SyncIntegration re-validates a stored integration against its provider,
// updating status and the last-synced timestamp. Failures flip the
// integration to ERROR with the provider's message.
func SyncIntegration(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("integrations", "sync")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if credCipher == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "integrations are not configured"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid integration ID"})
	}

	db := database.GetDB()
	var intg model.Integration
	if err := store.FindOwned(db, &intg, uint(id), clientID); err != nil {
		return scopedError(c, err, "integration")
	}

	provider, err := integrations.Get(intg.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	creds, err := credCipher.DecryptCredentials(intg.Credentials)
	if err != nil {
		log.Error("Failed to decrypt credentials", zap.Error(err), zap.Uint("integration_id", intg.ID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read credentials"})
	}

	now := time.Now()
	intg.LastSyncedAt = &now
	if testErr := provider.TestConnection(c.Request().Context(), creds); testErr != nil {
		intg.Status = model.IntegrationStatusError
		intg.ErrorMessage = testErr.Error()
		prometheus.IntegrationSyncCounter.WithLabelValues(intg.Type, "failure").Inc()
	} else {
		intg.Status = model.IntegrationStatusConnected
		intg.ErrorMessage = ""
		prometheus.IntegrationSyncCounter.WithLabelValues(intg.Type, "success").Inc()
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Save(&intg); result.Error != nil {
		log.Error("Failed to update integration", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update integration"})
	}

	if intg.Status == model.IntegrationStatusError {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": intg.ErrorMessage, "integration": intg})
	}
	return c.JSON(http.StatusOK, intg)
}

// GetIntegrationMetrics fetches the provider's metrics for a period.
func GetIntegrationMetrics(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("integrations", "metrics")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if credCipher == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "integrations are not configured"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid integration ID"})
	}
	period := c.QueryParam("period")
	if period == "" {
		period = "7d"
	}

	db := database.GetDB()
	var intg model.Integration
	if err := store.FindOwned(db, &intg, uint(id), clientID); err != nil {
		return scopedError(c, err, "integration")
	}
	if intg.Status != model.IntegrationStatusConnected {
		return c.JSON(http.StatusConflict, echo.Map{"error": "integration is not connected"})
	}

	provider, err := integrations.Get(intg.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	creds, err := credCipher.DecryptCredentials(intg.Credentials)
	if err != nil {
		log.Error("Failed to decrypt credentials", zap.Error(err), zap.Uint("integration_id", intg.ID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read credentials"})
	}

	metrics, err := provider.FetchMetrics(c.Request().Context(), creds, period)
	if err != nil {
		prometheus.IntegrationSyncCounter.WithLabelValues(intg.Type, "failure").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, metrics)
}

// DisconnectIntegration removes a provider connection and its stored
// credentials.
func DisconnectIntegration(c echo.Context) error {
	prometheus.RecordOperation("integrations", "disconnect")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid integration ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Integration{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "integration")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "integration disconnected"})
}
