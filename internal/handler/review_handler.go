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

// ReviewRequest defines the structure for manually recorded reviews
type ReviewRequest struct {
	ContactID *uint  `json:"contact_id"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Body      string `json:"body"`
	Source    string `json:"source"`
}

// CreateReview records a review collected outside the embed widget.
func CreateReview(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("reviews", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if req.ContactID != nil {
		if err := store.VerifyOwned(database.GetDB(), &model.Contact{}, *req.ContactID, clientID); err != nil {
			return scopedError(c, err, "contact")
		}
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	review := model.Review{
		ClientID:  clientID,
		ContactID: req.ContactID,
		Rating:    req.Rating,
		Body:      req.Body,
		Source:    source,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&review); result.Error != nil {
		log.Error("Failed to create review", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create review"})
	}

	dispatcher.Dispatch(database.GetDB(), clientID, "review.created", review)
	return c.JSON(http.StatusCreated, review)
}

// ListReviews lists the tenant's reviews with optional rating and
// published filters.
func ListReviews(c echo.Context) error {
	prometheus.RecordOperation("reviews", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var reviews []model.Review
	err := store.ListOwned(database.GetDB(), &reviews, clientID, func(q *gorm.DB) *gorm.DB {
		if r := c.QueryParam("rating"); r != "" {
			q = q.Where("rating = ?", r)
		}
		if p := c.QueryParam("published"); p != "" {
			q = q.Where("published = ?", p == "true")
		}
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve reviews"})
	}
	return c.JSON(http.StatusOK, reviews)
}

// ReplyReviewRequest carries the merchant's public reply.
type ReplyReviewRequest struct {
	Reply string `json:"reply" validate:"required"`
}

// ReplyReview attaches a public reply to a review.
func ReplyReview(c echo.Context) error {
	prometheus.RecordOperation("reviews", "reply")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review ID"})
	}

	var req ReplyReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var review model.Review
	if err := store.FindOwned(database.GetDB(), &review, uint(id), clientID); err != nil {
		return scopedError(c, err, "review")
	}

	now := time.Now()
	review.Reply = req.Reply
	review.RepliedAt = &now

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&review); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reply to review"})
	}
	return c.JSON(http.StatusOK, review)
}

// PublishReviewRequest toggles public visibility.
type PublishReviewRequest struct {
	Published bool `json:"published"`
}

// PublishReview toggles whether a review appears in the public widget.
func PublishReview(c echo.Context) error {
	prometheus.RecordOperation("reviews", "publish")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review ID"})
	}

	var req PublishReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var review model.Review
	if err := store.FindOwned(database.GetDB(), &review, uint(id), clientID); err != nil {
		return scopedError(c, err, "review")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&review).Update("published", req.Published); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update review"})
	}
	review.Published = req.Published
	return c.JSON(http.StatusOK, review)
}

// DeleteReview soft-deletes a review.
func DeleteReview(c echo.Context) error {
	prometheus.RecordOperation("reviews", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Review{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "review")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "review deleted"})
}

// ReviewWidgetRequest defines the structure for widget create/update
type ReviewWidgetRequest struct {
	Name           string   `json:"name" validate:"required"`
	AllowedDomains []string `json:"allowed_domains"`
}

// CreateReviewWidget creates an embeddable review widget. Its public key
// is generated server-side.
func CreateReviewWidget(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("review_widgets", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ReviewWidgetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	widget := model.ReviewWidget{
		ClientID:       clientID,
		Name:           req.Name,
		AllowedDomains: req.AllowedDomains,
		Active:         true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&widget); result.Error != nil {
		log.Error("Failed to create review widget", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create widget"})
	}
	return c.JSON(http.StatusCreated, widget)
}

// ListReviewWidgets lists the tenant's review widgets.
func ListReviewWidgets(c echo.Context) error {
	prometheus.RecordOperation("review_widgets", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var widgets []model.ReviewWidget
	err := store.ListOwned(database.GetDB(), &widgets, clientID, func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve widgets"})
	}
	return c.JSON(http.StatusOK, widgets)
}

// UpdateReviewWidget updates a widget's name and allowed domains.
func UpdateReviewWidget(c echo.Context) error {
	prometheus.RecordOperation("review_widgets", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid widget ID"})
	}

	var req ReviewWidgetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var widget model.ReviewWidget
	if err := store.FindOwned(database.GetDB(), &widget, uint(id), clientID); err != nil {
		return scopedError(c, err, "widget")
	}

	widget.Name = req.Name
	widget.AllowedDomains = req.AllowedDomains

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&widget); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update widget"})
	}
	return c.JSON(http.StatusOK, widget)
}

// DeleteReviewWidget removes a widget; its key stops resolving immediately.
func DeleteReviewWidget(c echo.Context) error {
	prometheus.RecordOperation("review_widgets", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid widget ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.ReviewWidget{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "widget")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "widget deleted"})
}
