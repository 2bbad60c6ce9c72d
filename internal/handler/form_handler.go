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

// FormRequest defines the structure for form create/update requests
type FormRequest struct {
	Name           string                   `json:"name" validate:"required"`
	Fields         []map[string]interface{} `json:"fields"`
	AllowedDomains []string                 `json:"allowed_domains"`
	Active         *bool                    `json:"active"`
}

// CreateForm creates an embeddable lead-capture form. Its public key is
// generated server-side.
func CreateForm(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("forms", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req FormRequest
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
	form := model.Form{
		ClientID:       clientID,
		Name:           req.Name,
		Fields:         req.Fields,
		AllowedDomains: req.AllowedDomains,
		Active:         active,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&form); result.Error != nil {
		log.Error("Failed to create form", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create form"})
	}
	return c.JSON(http.StatusCreated, form)
}

// ListForms lists the tenant's forms.
func ListForms(c echo.Context) error {
	prometheus.RecordOperation("forms", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var forms []model.Form
	err := store.ListOwned(database.GetDB(), &forms, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve forms"})
	}
	return c.JSON(http.StatusOK, forms)
}

// GetForm retrieves one of the tenant's forms.
func GetForm(c echo.Context) error {
	prometheus.RecordOperation("forms", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var form model.Form
	if err := store.FindOwned(database.GetDB(), &form, uint(id), clientID); err != nil {
		return scopedError(c, err, "form")
	}
	return c.JSON(http.StatusOK, form)
}

// UpdateForm updates a form's schema and allowed domains.
func UpdateForm(c echo.Context) error {
	prometheus.RecordOperation("forms", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form ID"})
	}

	var req FormRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var form model.Form
	if err := store.FindOwned(database.GetDB(), &form, uint(id), clientID); err != nil {
		return scopedError(c, err, "form")
	}

	form.Name = req.Name
	form.Fields = req.Fields
	form.AllowedDomains = req.AllowedDomains
	if req.Active != nil {
		form.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&form); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update form"})
	}
	return c.JSON(http.StatusOK, form)
}

// DeleteForm removes a form; its public key stops resolving immediately.
func DeleteForm(c echo.Context) error {
	prometheus.RecordOperation("forms", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Form{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "form")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "form deleted"})
}

// ListFormSubmissions lists the submissions collected by one form.
func ListFormSubmissions(c echo.Context) error {
	prometheus.RecordOperation("forms", "submissions")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form ID"})
	}
	if err := store.VerifyOwned(database.GetDB(), &model.Form{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "form")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var submissions []model.FormSubmission
	result := database.GetDB().
		Where("client_id = ? AND form_id = ?", clientID, uint(id)).
		Order("created_at desc").
		Find(&submissions)
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve submissions"})
	}
	return c.JSON(http.StatusOK, submissions)
}
