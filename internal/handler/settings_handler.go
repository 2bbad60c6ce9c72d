package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// loadOrCreateSettings returns the tenant's settings row, creating it with
// defaults on first access.
func loadOrCreateSettings(db *gorm.DB, clientID uint) (*model.ClientSettings, error) {
	var settings model.ClientSettings
	err := db.Where("client_id = ?", clientID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.ClientSettings{
			ClientID:      clientID,
			Timezone:      "UTC",
			BrandColor:    "#000000",
			NotifyByEmail: true,
		}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetSettings returns the tenant's settings, creating the row with
// defaults on first access.
func GetSettings(c echo.Context) error {
	prometheus.RecordOperation("settings", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	settings, err := loadOrCreateSettings(database.GetDB(), clientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve settings"})
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettingsRequest carries partial settings updates; absent fields
// keep their current value.
type UpdateSettingsRequest struct {
	Timezone           *string                `json:"timezone"`
	BusinessHours      map[string]interface{} `json:"business_hours"`
	BrandColor         *string                `json:"brand_color" validate:"omitempty,hexcolor"`
	LogoURL            *string                `json:"logo_url" validate:"omitempty,url"`
	NotifyByEmail      *bool                  `json:"notify_by_email"`
	NotifyBySMS        *bool                  `json:"notify_by_sms"`
	ShopAllowedDomains []string               `json:"shop_allowed_domains"`
}

// UpdateSettings applies a partial update to the tenant's settings.
func UpdateSettings(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("settings", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	settings, err := loadOrCreateSettings(db, clientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve settings"})
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid timezone"})
		}
		settings.Timezone = *req.Timezone
	}
	if req.BusinessHours != nil {
		settings.BusinessHours = req.BusinessHours
	}
	if req.BrandColor != nil {
		settings.BrandColor = *req.BrandColor
	}
	if req.LogoURL != nil {
		settings.LogoURL = *req.LogoURL
	}
	if req.NotifyByEmail != nil {
		settings.NotifyByEmail = *req.NotifyByEmail
	}
	if req.NotifyBySMS != nil {
		settings.NotifyBySMS = *req.NotifyBySMS
	}
	if req.ShopAllowedDomains != nil {
		settings.ShopAllowedDomains = req.ShopAllowedDomains
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Save(settings); result.Error != nil {
		log.Error("Failed to update settings", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update settings"})
	}
	return c.JSON(http.StatusOK, settings)
}
