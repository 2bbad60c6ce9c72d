package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
)

// AgencyRequest defines the structure for agency creation/update requests
type AgencyRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// CreateAgency creates a new agency. Platform admins only.
func CreateAgency(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("agencies", "create")

	var req AgencyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	userID, _ := c.Get("user_id").(uint)

	var count int64
	database.GetDB().Model(&model.Agency{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "agency with this name already exists"})
	}

	agency := model.Agency{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		OwnerID: userID,
		Active:  true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&agency); result.Error != nil {
		log.Error("Failed to create agency", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create agency"})
	}

	log.Info("Agency created", zap.Uint("id", agency.ID), zap.String("name", agency.Name))
	return c.JSON(http.StatusCreated, agency)
}

// ListAgencies lists all agencies. Platform admins only.
func ListAgencies(c echo.Context) error {
	prometheus.RecordOperation("agencies", "list")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var agencies []model.Agency
	if result := database.GetDB().Order("created_at desc").Find(&agencies); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve agencies"})
	}
	return c.JSON(http.StatusOK, agencies)
}

// ClientRequest defines the structure for client creation requests
type ClientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// CreateAgencyClient creates a client under the caller's agency.
func CreateAgencyClient(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("clients", "create")

	tc, ok := tenantFromContext(c)
	if !ok || tc.AgencyID == nil {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	client := model.Client{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		AgencyID: tc.AgencyID,
		Active:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&client); result.Error != nil {
		log.Error("Failed to create client", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create client"})
	}

	log.Info("Client created",
		zap.Uint("id", client.ID),
		zap.String("name", client.Name),
		zap.Uint("agency_id", *tc.AgencyID))
	return c.JSON(http.StatusCreated, client)
}

// ListAgencyClients lists the clients owned by the caller's agency.
func ListAgencyClients(c echo.Context) error {
	prometheus.RecordOperation("clients", "list")

	tc, ok := tenantFromContext(c)
	if !ok || tc.AgencyID == nil {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var clients []model.Client
	result := database.GetDB().
		Where("agency_id = ?", *tc.AgencyID).
		Order("created_at desc").
		Find(&clients)
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve clients"})
	}
	return c.JSON(http.StatusOK, clients)
}

// GetAgencyClient retrieves one client of the caller's agency. A client
// owned by another agency reports not found.
func GetAgencyClient(c echo.Context) error {
	prometheus.RecordOperation("clients", "get")

	tc, ok := tenantFromContext(c)
	if !ok || tc.AgencyID == nil {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var client model.Client
	result := database.GetDB().Where("id = ? AND agency_id = ?", id, *tc.AgencyID).First(&client)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}
	return c.JSON(http.StatusOK, client)
}
