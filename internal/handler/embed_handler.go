package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/embed"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// checkEmbedOrigin validates the request origin against the allow-list and
// records the outcome. A missing or unlisted origin is rejected.
func checkEmbedOrigin(c echo.Context, allowedDomains []string) bool {
	origin := embed.RequestOrigin(c.Request())
	if embed.OriginAllowed(origin, allowedDomains) {
		prometheus.EmbedOriginCounter.WithLabelValues("allowed").Inc()
		return true
	}
	prometheus.EmbedOriginCounter.WithLabelValues("rejected").Inc()
	return false
}

// EmbedReviews serves the published reviews of a widget to an allowed
// origin. The widget is resolved by its public key; no authentication.
func EmbedReviews(c echo.Context) error {
	prometheus.RecordOperation("embed", "reviews")

	var widget model.ReviewWidget
	result := database.GetDB().
		Where("key = ? AND active = ?", c.Param("key"), true).
		First(&widget)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "widget not found"})
	}

	if !checkEmbedOrigin(c, widget.AllowedDomains) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var reviews []model.Review
	err := database.GetDB().
		Where("client_id = ? AND published = ?", widget.ClientID, true).
		Order("created_at desc").
		Limit(50).
		Find(&reviews).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve reviews"})
	}

	// Only the public fields leave the embed surface.
	type publicReview struct {
		Rating    int        `json:"rating"`
		Body      string     `json:"body"`
		Reply     string     `json:"reply,omitempty"`
		CreatedAt time.Time  `json:"created_at"`
		RepliedAt *time.Time `json:"replied_at,omitempty"`
	}
	out := make([]publicReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, publicReview{
			Rating:    r.Rating,
			Body:      r.Body,
			Reply:     r.Reply,
			CreatedAt: r.CreatedAt,
			RepliedAt: r.RepliedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"widget": widget.Name, "reviews": out})
}

// EmbedSubmitReview records a review through an embeddable widget.
type EmbedSubmitReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Body   string `json:"body"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// EmbedSubmitReview accepts a review submission from an allowed origin.
// A known submitter email is linked to the matching contact.
func EmbedSubmitReview(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("embed", "submit_review")

	var widget model.ReviewWidget
	result := database.GetDB().
		Where("key = ? AND active = ?", c.Param("key"), true).
		First(&widget)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "widget not found"})
	}

	if !checkEmbedOrigin(c, widget.AllowedDomains) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
	}

	var req EmbedSubmitReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	review := model.Review{
		ClientID: widget.ClientID,
		Rating:   req.Rating,
		Body:     req.Body,
		Source:   "widget",
	}
	if req.Email != "" {
		var ct model.Contact
		err := database.GetDB().
			Where("client_id = ? AND email = ?", widget.ClientID, req.Email).
			First(&ct).Error
		if err == nil {
			review.ContactID = &ct.ID
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&review); result.Error != nil {
		log.Error("Failed to record embedded review", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit review"})
	}

	dispatcher.Dispatch(database.GetDB(), widget.ClientID, "review.created", review)
	return c.JSON(http.StatusCreated, echo.Map{"message": "review submitted"})
}

// EmbedForm serves a form's field schema to an allowed origin.
func EmbedForm(c echo.Context) error {
	prometheus.RecordOperation("embed", "form")

	var form model.Form
	result := database.GetDB().
		Where("key = ? AND active = ?", c.Param("key"), true).
		First(&form)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "form not found"})
	}

	if !checkEmbedOrigin(c, form.AllowedDomains) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"name":   form.Name,
		"fields": form.Fields,
	})
}

// EmbedSubmitForm records a form submission from an allowed origin. A
// submission carrying a known email is linked to the matching contact; an
// unknown email creates one.
func EmbedSubmitForm(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("embed", "submit_form")

	var form model.Form
	result := database.GetDB().
		Where("key = ? AND active = ?", c.Param("key"), true).
		First(&form)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "form not found"})
	}

	if !checkEmbedOrigin(c, form.AllowedDomains) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
	}

	var data map[string]interface{}
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(data) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty submission"})
	}

	submission := model.FormSubmission{
		ClientID: form.ClientID,
		FormID:   form.ID,
		Data:     data,
		Origin:   embed.RequestOrigin(c.Request()),
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := db.Transaction(func(tx *gorm.DB) error {
		if email, ok := data["email"].(string); ok && email != "" {
			var ct model.Contact
			err := tx.Where("client_id = ? AND email = ?", form.ClientID, email).First(&ct).Error
			if err == gorm.ErrRecordNotFound {
				ct = model.Contact{
					ClientID: form.ClientID,
					Email:    email,
					Source:   "form",
				}
				if name, ok := data["first_name"].(string); ok {
					ct.FirstName = name
				}
				if name, ok := data["last_name"].(string); ok {
					ct.LastName = name
				}
				if phone, ok := data["phone"].(string); ok {
					ct.Phone = phone
				}
				if err := tx.Create(&ct).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			submission.ContactID = &ct.ID
		}
		return tx.Create(&submission).Error
	})
	if err != nil {
		log.Error("Failed to record form submission", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit form"})
	}

	dispatcher.Dispatch(db, form.ClientID, "form.submitted", submission)
	return c.JSON(http.StatusCreated, echo.Map{"message": "form submitted"})
}

// EmbedShopProducts serves the active products of a client's shop to an
// allowed origin. The tenant is resolved through the settings embed key.
func EmbedShopProducts(c echo.Context) error {
	prometheus.RecordOperation("embed", "shop")

	var settings model.ClientSettings
	result := database.GetDB().
		Where("embed_key = ?", c.Param("key")).
		First(&settings)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}

	if !checkEmbedOrigin(c, settings.ShopAllowedDomains) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	err := database.GetDB().
		Where("client_id = ? AND active = ?", settings.ClientID, true).
		Order("name asc").
		Find(&products).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	type publicProduct struct {
		Name        string  `json:"name"`
		SKU         string  `json:"sku"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		InStock     bool    `json:"in_stock"`
	}
	out := make([]publicProduct, 0, len(products))
	for _, p := range products {
		out = append(out, publicProduct{
			Name:        p.Name,
			SKU:         p.SKU,
			Description: p.Description,
			Price:       p.Price,
			InStock:     p.Stock > 0,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}
