package handler

import (
	"net/http"
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

// CallLogRequest defines the structure for call log entries
type CallLogRequest struct {
	ContactID   *uint  `json:"contact_id"`
	StaffID     *uint  `json:"staff_id"`
	Direction   string `json:"direction" validate:"required,oneof=inbound outbound"`
	FromNumber  string `json:"from_number" validate:"required"`
	ToNumber    string `json:"to_number" validate:"required"`
	DurationSec int    `json:"duration_sec" validate:"gte=0"`
	Status      string `json:"status" validate:"omitempty,oneof=completed missed voicemail failed"`
	Notes       string `json:"notes"`
}

// CreateCallLog records a phone call against the tenant.
func CreateCallLog(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("calls", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req CallLogRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	if req.ContactID != nil {
		if err := store.VerifyOwned(db, &model.Contact{}, *req.ContactID, clientID); err != nil {
			return scopedError(c, err, "contact")
		}
	}
	if req.StaffID != nil {
		if err := store.VerifyOwned(db, &model.Staff{}, *req.StaffID, clientID); err != nil {
			return scopedError(c, err, "staff")
		}
	}

	status := req.Status
	if status == "" {
		status = "completed"
	}
	call := model.CallLog{
		ClientID:    clientID,
		ContactID:   req.ContactID,
		StaffID:     req.StaffID,
		Direction:   req.Direction,
		FromNumber:  req.FromNumber,
		ToNumber:    req.ToNumber,
		DurationSec: req.DurationSec,
		Status:      status,
		Notes:       req.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := db.Create(&call); result.Error != nil {
		log.Error("Failed to record call", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record call"})
	}

	dispatcher.Dispatch(db, clientID, "call.logged", call)
	return c.JSON(http.StatusCreated, call)
}

// ListCallLogs lists the tenant's call logs, newest first.
func ListCallLogs(c echo.Context) error {
	prometheus.RecordOperation("calls", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var calls []model.CallLog
	err := store.ListOwned(database.GetDB(), &calls, clientID, func(q *gorm.DB) *gorm.DB {
		if d := c.QueryParam("direction"); d != "" {
			q = q.Where("direction = ?", d)
		}
		if ct := c.QueryParam("contact_id"); ct != "" {
			q = q.Where("contact_id = ?", ct)
		}
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve calls"})
	}
	return c.JSON(http.StatusOK, calls)
}

// SendSMSRequest defines the structure for outbound SMS requests
type SendSMSRequest struct {
	ContactID  *uint  `json:"contact_id"`
	FromNumber string `json:"from_number" validate:"required"`
	ToNumber   string `json:"to_number" validate:"required"`
	Body       string `json:"body" validate:"required,max=1600"`
}

// SendSMS queues an outbound SMS. The message is persisted as queued and
// handed to the provider asynchronously; webhook subscribers are notified.
func SendSMS(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("sms", "send")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req SendSMSRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	if req.ContactID != nil {
		if err := store.VerifyOwned(db, &model.Contact{}, *req.ContactID, clientID); err != nil {
			return scopedError(c, err, "contact")
		}
	}

	sms := model.SMSMessage{
		ClientID:   clientID,
		ContactID:  req.ContactID,
		Direction:  model.MessageDirectionOutbound,
		FromNumber: req.FromNumber,
		ToNumber:   req.ToNumber,
		Body:       req.Body,
		Status:     "queued",
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := db.Create(&sms); result.Error != nil {
		log.Error("Failed to queue SMS", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to queue SMS"})
	}

	dispatcher.Dispatch(db, clientID, "sms.queued", sms)

	log.Info("SMS queued", zap.Uint("id", sms.ID), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusAccepted, sms)
}

// ListSMS lists the tenant's SMS messages, newest first.
func ListSMS(c echo.Context) error {
	prometheus.RecordOperation("sms", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var messages []model.SMSMessage
	err := store.ListOwned(database.GetDB(), &messages, clientID, func(q *gorm.DB) *gorm.DB {
		if ct := c.QueryParam("contact_id"); ct != "" {
			q = q.Where("contact_id = ?", ct)
		}
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve SMS messages"})
	}
	return c.JSON(http.StatusOK, messages)
}
