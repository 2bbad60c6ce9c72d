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

// ChargeRequest defines the structure for payment charge requests
type ChargeRequest struct {
	OrderID   *uint   `json:"order_id"`
	ContactID *uint   `json:"contact_id"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"omitempty,len=3"`
	Source    string  `json:"source" validate:"required"`
}

// Charge attempts a payment through the configured gateway. Both outcomes
// are persisted; a declined charge is a recorded failure, not a dropped
// request. A paid order is transitioned in the same request.
func Charge(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("payments", "charge")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ChargeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	if req.OrderID != nil {
		if err := store.VerifyOwned(db, &model.Order{}, *req.OrderID, clientID); err != nil {
			return scopedError(c, err, "order")
		}
	}
	if req.ContactID != nil {
		if err := store.VerifyOwned(db, &model.Contact{}, *req.ContactID, clientID); err != nil {
			return scopedError(c, err, "contact")
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	txn := model.PaymentTransaction{
		ClientID:  clientID,
		OrderID:   req.OrderID,
		ContactID: req.ContactID,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    model.PaymentStatusPending,
		Gateway:   "test",
	}

	reference, chargeErr := paymentGateway.Charge(c.Request().Context(), req.Amount, currency, req.Source)
	if chargeErr != nil {
		txn.Status = model.PaymentStatusFailed
		txn.FailureReason = chargeErr.Error()
	} else {
		txn.Status = model.PaymentStatusSucceeded
		txn.Reference = reference
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := db.Create(&txn); result.Error != nil {
		log.Error("Failed to record payment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}

	if chargeErr != nil {
		dispatcher.Dispatch(db, clientID, "payment.failed", txn)
		log.Info("Payment declined",
			zap.String("id", txn.ID),
			zap.String("reason", txn.FailureReason))
		return c.JSON(http.StatusPaymentRequired, txn)
	}

	if req.OrderID != nil {
		db.Model(&model.Order{}).
			Where("id = ? AND client_id = ?", *req.OrderID, clientID).
			Update("status", model.OrderStatusPaid)
	}
	dispatcher.Dispatch(db, clientID, "payment.succeeded", txn)

	log.Info("Payment succeeded",
		zap.String("id", txn.ID),
		zap.Float64("amount", txn.Amount),
		zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, txn)
}

// ListPayments lists the tenant's payment transactions, newest first.
func ListPayments(c echo.Context) error {
	prometheus.RecordOperation("payments", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transactions []model.PaymentTransaction
	err := store.ListOwned(database.GetDB(), &transactions, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		return q.Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve payments"})
	}
	return c.JSON(http.StatusOK, transactions)
}

// GetPayment retrieves one payment transaction by its public id.
func GetPayment(c echo.Context) error {
	prometheus.RecordOperation("payments", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var txn model.PaymentTransaction
	result := database.GetDB().
		Where("id = ? AND client_id = ?", c.Param("id"), clientID).
		First(&txn)
	if result.Error != nil {
		return scopedError(c, result.Error, "payment")
	}
	return c.JSON(http.StatusOK, txn)
}
