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

// PipelineRequest defines the structure for pipeline creation requests
type PipelineRequest struct {
	Name   string   `json:"name" validate:"required"`
	Stages []string `json:"stages"`
}

// CreatePipeline creates a pipeline with its ordered stages.
func CreatePipeline(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("pipelines", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req PipelineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var count int64
	database.GetDB().Model(&model.Pipeline{}).
		Where("client_id = ? AND name = ?", clientID, req.Name).
		Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "pipeline with this name already exists"})
	}

	pipeline := model.Pipeline{ClientID: clientID, Name: req.Name}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pipeline).Error; err != nil {
			return err
		}
		for i, name := range req.Stages {
			stage := model.Stage{
				ClientID:   clientID,
				PipelineID: pipeline.ID,
				Name:       name,
				Position:   i,
			}
			if err := tx.Create(&stage).Error; err != nil {
				return err
			}
			pipeline.Stages = append(pipeline.Stages, stage)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create pipeline", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create pipeline"})
	}

	log.Info("Pipeline created", zap.Uint("id", pipeline.ID), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, pipeline)
}

// ListPipelines lists the tenant's pipelines with their stages.
func ListPipelines(c echo.Context) error {
	prometheus.RecordOperation("pipelines", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var pipelines []model.Pipeline
	err := store.ListOwned(database.GetDB(), &pipelines, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).Order("created_at asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve pipelines"})
	}
	return c.JSON(http.StatusOK, pipelines)
}

// DeletePipeline soft-deletes a pipeline. Pipelines with open deals cannot
// be removed.
func DeletePipeline(c echo.Context) error {
	prometheus.RecordOperation("pipelines", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pipeline ID"})
	}

	var open int64
	database.GetDB().Model(&model.Deal{}).
		Where("client_id = ? AND pipeline_id = ? AND status = ?", clientID, uint(id), model.DealStatusOpen).
		Count(&open)
	if open > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "pipeline has open deals"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Pipeline{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "pipeline")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pipeline deleted"})
}

// DealRequest defines the structure for deal create/update requests
type DealRequest struct {
	Title      string  `json:"title" validate:"required"`
	Value      float64 `json:"value" validate:"gte=0"`
	Currency   string  `json:"currency"`
	ContactID  *uint   `json:"contact_id"`
	PipelineID uint    `json:"pipeline_id" validate:"required"`
	StageID    uint    `json:"stage_id" validate:"required"`
	AssigneeID *uint   `json:"assignee_id"`
	Notes      string  `json:"notes"`
}

// verifyDealReferences checks every foreign entity in the payload belongs
// to the caller's tenant and the stage belongs to the pipeline.
func verifyDealReferences(db *gorm.DB, clientID uint, req *DealRequest) error {
	if err := store.VerifyOwned(db, &model.Pipeline{}, req.PipelineID, clientID); err != nil {
		return err
	}
	var count int64
	result := db.Model(&model.Stage{}).
		Where("id = ? AND client_id = ? AND pipeline_id = ?", req.StageID, clientID, req.PipelineID).
		Count(&count)
	if result.Error != nil {
		return result.Error
	}
	if count == 0 {
		return store.ErrNotFound
	}
	if req.ContactID != nil {
		if err := store.VerifyOwned(db, &model.Contact{}, *req.ContactID, clientID); err != nil {
			return err
		}
	}
	return nil
}

// CreateDeal creates a deal after re-verifying every referenced entity.
func CreateDeal(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("deals", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req DealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := verifyDealReferences(database.GetDB(), clientID, &req); err != nil {
		return scopedError(c, err, "referenced entity")
	}

	userID, _ := middleware.UserIDFromEcho(c)
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	deal := model.Deal{
		ClientID:   clientID,
		Title:      req.Title,
		Value:      req.Value,
		Currency:   currency,
		Status:     model.DealStatusOpen,
		ContactID:  req.ContactID,
		PipelineID: req.PipelineID,
		StageID:    req.StageID,
		AssigneeID: req.AssigneeID,
		Notes:      req.Notes,
		CreatedBy:  userID,
		UpdatedBy:  userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&deal); result.Error != nil {
		log.Error("Failed to create deal", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create deal"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "deal.created", deal)

	log.Info("Deal created", zap.Uint("id", deal.ID), zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, deal)
}

// ListDeals lists the tenant's deals, optionally filtered by pipeline,
// stage or status.
func ListDeals(c echo.Context) error {
	prometheus.RecordOperation("deals", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var deals []model.Deal
	err := store.ListOwned(database.GetDB(), &deals, clientID, func(q *gorm.DB) *gorm.DB {
		if p := c.QueryParam("pipeline_id"); p != "" {
			q = q.Where("pipeline_id = ?", p)
		}
		if s := c.QueryParam("stage_id"); s != "" {
			q = q.Where("stage_id = ?", s)
		}
		if st := c.QueryParam("status"); st != "" {
			q = q.Where("status = ?", st)
		}
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve deals"})
	}
	return c.JSON(http.StatusOK, deals)
}

// GetDeal retrieves one of the tenant's deals.
func GetDeal(c echo.Context) error {
	prometheus.RecordOperation("deals", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var deal model.Deal
	if err := store.FindOwned(database.GetDB(), &deal, uint(id), clientID); err != nil {
		return scopedError(c, err, "deal")
	}
	return c.JSON(http.StatusOK, deal)
}

// UpdateDeal updates one of the tenant's deals, re-verifying every
// referenced entity in the new payload.
func UpdateDeal(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("deals", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal ID"})
	}

	var deal model.Deal
	if err := store.FindOwned(database.GetDB(), &deal, uint(id), clientID); err != nil {
		return scopedError(c, err, "deal")
	}

	var req DealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := verifyDealReferences(database.GetDB(), clientID, &req); err != nil {
		return scopedError(c, err, "referenced entity")
	}

	userID, _ := middleware.UserIDFromEcho(c)
	deal.Title = req.Title
	deal.Value = req.Value
	if req.Currency != "" {
		deal.Currency = req.Currency
	}
	deal.ContactID = req.ContactID
	deal.PipelineID = req.PipelineID
	deal.StageID = req.StageID
	deal.AssigneeID = req.AssigneeID
	deal.Notes = req.Notes
	deal.UpdatedBy = userID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&deal); result.Error != nil {
		log.Error("Failed to update deal", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update deal"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "deal.updated", deal)
	return c.JSON(http.StatusOK, deal)
}

// MoveDealRequest names the target stage and optional terminal status.
type MoveDealRequest struct {
	StageID uint   `json:"stage_id" validate:"required"`
	Status  string `json:"status" validate:"omitempty,oneof=open won lost"`
}

// MoveDeal moves a deal to another stage of its pipeline, optionally
// closing it as won or lost.
func MoveDeal(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("deals", "move")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal ID"})
	}

	var deal model.Deal
	if err := store.FindOwned(database.GetDB(), &deal, uint(id), clientID); err != nil {
		return scopedError(c, err, "deal")
	}

	var req MoveDealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var count int64
	database.GetDB().Model(&model.Stage{}).
		Where("id = ? AND client_id = ? AND pipeline_id = ?", req.StageID, clientID, deal.PipelineID).
		Count(&count)
	if count == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "stage not found"})
	}

	userID, _ := middleware.UserIDFromEcho(c)
	deal.StageID = req.StageID
	if req.Status != "" {
		deal.Status = req.Status
	}
	deal.UpdatedBy = userID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&deal); result.Error != nil {
		log.Error("Failed to move deal", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to move deal"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "deal.stage_changed", deal)
	return c.JSON(http.StatusOK, deal)
}

// DeleteDeal soft-deletes one of the tenant's deals.
func DeleteDeal(c echo.Context) error {
	prometheus.RecordOperation("deals", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Deal{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "deal")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deal deleted"})
}
