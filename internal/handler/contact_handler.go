package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/contact"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactRequest defines the structure for contact create/update requests
type ContactRequest struct {
	FirstName    string                 `json:"first_name"`
	LastName     string                 `json:"last_name"`
	Email        string                 `json:"email" validate:"required,email"`
	Phone        string                 `json:"phone"`
	Company      string                 `json:"company"`
	Source       string                 `json:"source"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

// CreateContact creates a contact for the caller's client tenant.
func CreateContact(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("contacts", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var count int64
	database.GetDB().Model(&model.Contact{}).
		Where("client_id = ? AND email = ?", clientID, req.Email).
		Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this email already exists"})
	}

	userID, _ := middleware.UserIDFromEcho(c)
	ct := model.Contact{
		ClientID:     clientID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Source:       req.Source,
		Tags:         req.Tags,
		CustomFields: req.CustomFields,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&ct); result.Error != nil {
		log.Error("Failed to create contact", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create contact"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "contact.created", ct)

	log.Info("Contact created", zap.Uint("id", ct.ID), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, ct)
}

// ListContacts lists the tenant's contacts with optional search, tag filter
// and offset pagination.
func ListContacts(c echo.Context) error {
	prometheus.RecordOperation("contacts", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := c.QueryParam("search")
	tag := c.QueryParam("tag")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var contacts []model.Contact
	err := store.ListOwned(database.GetDB(), &contacts, clientID, func(q *gorm.DB) *gorm.DB {
		if search != "" {
			like := "%" + search + "%"
			q = q.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR company LIKE ?",
				like, like, like, like)
		}
		if tag != "" {
			q = q.Where("tags LIKE ?", "%\""+tag+"\"%")
		}
		return q.Order("created_at desc").Offset((page - 1) * limit).Limit(limit)
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve contacts"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"contacts": contacts,
		"page":     page,
		"limit":    limit,
	})
}

// GetContact retrieves one of the tenant's contacts.
func GetContact(c echo.Context) error {
	prometheus.RecordOperation("contacts", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var ct model.Contact
	if err := store.FindOwned(database.GetDB(), &ct, uint(id), clientID); err != nil {
		return scopedError(c, err, "contact")
	}
	return c.JSON(http.StatusOK, ct)
}

// UpdateContact updates one of the tenant's contacts.
func UpdateContact(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("contacts", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact ID"})
	}

	var ct model.Contact
	if err := store.FindOwned(database.GetDB(), &ct, uint(id), clientID); err != nil {
		return scopedError(c, err, "contact")
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if req.Email != ct.Email {
		var count int64
		database.GetDB().Model(&model.Contact{}).
			Where("client_id = ? AND email = ? AND id <> ?", clientID, req.Email, ct.ID).
			Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this email already exists"})
		}
	}

	userID, _ := middleware.UserIDFromEcho(c)
	ct.FirstName = req.FirstName
	ct.LastName = req.LastName
	ct.Email = req.Email
	ct.Phone = req.Phone
	ct.Company = req.Company
	ct.Source = req.Source
	ct.Tags = req.Tags
	ct.CustomFields = req.CustomFields
	ct.UpdatedBy = userID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&ct); result.Error != nil {
		log.Error("Failed to update contact", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update contact"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "contact.updated", ct)
	return c.JSON(http.StatusOK, ct)
}

// DeleteContact soft-deletes one of the tenant's contacts.
func DeleteContact(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("contacts", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Contact{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "contact")
	}

	log.Info("Contact deleted", zap.Uint64("id", id), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusOK, echo.Map{"message": "contact deleted"})
}

// MergeContactsRequest names the surviving contact and the duplicates to
// fold into it.
type MergeContactsRequest struct {
	PrimaryID    uint   `json:"primary_id" validate:"required"`
	SecondaryIDs []uint `json:"secondary_ids" validate:"required,min=1"`
}

// MergeContacts merges duplicate contacts into a primary record. The whole
// merge is transactional; any failure leaves every contact untouched.
func MergeContacts(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("contacts", "merge")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req MergeContactsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	userID, _ := middleware.UserIDFromEcho(c)

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	merged, err := contact.Merge(database.GetDB(), clientID, req.PrimaryID, req.SecondaryIDs, userID)
	if err != nil {
		prometheus.ContactMergeCounter.WithLabelValues("failure").Inc()
		if store.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
		}
		log.Error("Contact merge failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	prometheus.ContactMergeCounter.WithLabelValues("success").Inc()
	dispatcher.Dispatch(database.GetDB(), clientID, "contact.merged", merged)

	log.Info("Contacts merged",
		zap.Uint("primary_id", req.PrimaryID),
		zap.Int("merged", len(req.SecondaryIDs)),
		zap.Uint("client_id", clientID))
	return c.JSON(http.StatusOK, merged)
}

// GetContactHistory lists the history records of one contact.
func GetContactHistory(c echo.Context) error {
	prometheus.RecordOperation("contacts", "history")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact ID"})
	}
	if err := store.VerifyOwned(database.GetDB(), &model.Contact{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "contact")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var history []model.ContactHistory
	result := database.GetDB().
		Where("client_id = ? AND contact_id = ?", clientID, uint(id)).
		Order("created_at desc").
		Find(&history)
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve contact history"})
	}
	return c.JSON(http.StatusOK, history)
}
