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

// ProductRequest defines the structure for product create/update requests
type ProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	SKU         string  `json:"sku" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Active      *bool   `json:"active"`
}

// CreateProduct adds a product to the tenant's shop.
func CreateProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("products", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var count int64
	database.GetDB().Model(&model.Product{}).
		Where("client_id = ? AND sku = ?", clientID, req.SKU).
		Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "product with this SKU already exists"})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	product := model.Product{
		ClientID:    clientID,
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      active,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("Product created", zap.Uint("id", product.ID), zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// ListProducts lists the tenant's products.
func ListProducts(c echo.Context) error {
	prometheus.RecordOperation("products", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	err := store.ListOwned(database.GetDB(), &products, clientID, func(q *gorm.DB) *gorm.DB {
		if a := c.QueryParam("active"); a != "" {
			q = q.Where("active = ?", a == "true")
		}
		return q.Order("name asc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}
	return c.JSON(http.StatusOK, products)
}

// UpdateProduct updates one of the tenant's products.
func UpdateProduct(c echo.Context) error {
	prometheus.RecordOperation("products", "update")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product ID"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var product model.Product
	if err := store.FindOwned(database.GetDB(), &product, uint(id), clientID); err != nil {
		return scopedError(c, err, "product")
	}

	if req.SKU != product.SKU {
		var count int64
		database.GetDB().Model(&model.Product{}).
			Where("client_id = ? AND sku = ? AND id <> ?", clientID, req.SKU, product.ID).
			Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "product with this SKU already exists"})
		}
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = req.Stock
	if req.Active != nil {
		product.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&product); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update product"})
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct soft-deletes a product.
func DeleteProduct(c echo.Context) error {
	prometheus.RecordOperation("products", "delete")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteOwned(database.GetDB(), &model.Product{}, uint(id), clientID); err != nil {
		return scopedError(c, err, "product")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// OrderItemRequest is one product line of an order payload.
type OrderItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// OrderRequest defines the structure for order creation requests. Prices
// are never accepted from the client.
type OrderRequest struct {
	ContactID *uint              `json:"contact_id"`
	Currency  string             `json:"currency"`
	Items     []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder creates an order. Unit prices are snapshotted from the
// verified product rows and the total computed server-side; stock is
// decremented in the same transaction.
func CreateOrder(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("orders", "create")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var req OrderRequest
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

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	order := model.Order{
		ClientID:  clientID,
		ContactID: req.ContactID,
		Status:    model.OrderStatusPending,
		Currency:  currency,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := db.Transaction(func(tx *gorm.DB) error {
		var total float64
		var items []model.OrderItem

		for _, line := range req.Items {
			var product model.Product
			if err := store.FindOwned(tx, &product, line.ProductID, clientID); err != nil {
				return err
			}
			if !product.Active {
				return echo.NewHTTPError(http.StatusBadRequest, "product is not available")
			}
			if product.Stock < line.Quantity {
				return echo.NewHTTPError(http.StatusConflict, "insufficient stock")
			}

			if err := tx.Model(&product).Update("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return err
			}

			items = append(items, model.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
			})
			total += product.Price * float64(line.Quantity)
		}

		order.Total = total
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return c.JSON(httpErr.Code, echo.Map{"error": httpErr.Message})
		}
		if store.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		log.Error("Failed to create order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}

	dispatcher.Dispatch(db, clientID, "order.created", order)

	log.Info("Order created",
		zap.Uint("id", order.ID),
		zap.Float64("total", order.Total),
		zap.Uint("client_id", clientID))
	return c.JSON(http.StatusCreated, order)
}

// ListOrders lists the tenant's orders with their items.
func ListOrders(c echo.Context) error {
	prometheus.RecordOperation("orders", "list")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.Order
	err := store.ListOwned(database.GetDB(), &orders, clientID, func(q *gorm.DB) *gorm.DB {
		if s := c.QueryParam("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		return q.Preload("Items").Order("created_at desc")
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder retrieves one order with its items.
func GetOrder(c echo.Context) error {
	prometheus.RecordOperation("orders", "get")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var order model.Order
	result := database.GetDB().
		Preload("Items").
		Where("id = ? AND client_id = ?", uint(id), clientID).
		First(&order)
	if result.Error != nil {
		return scopedError(c, result.Error, "order")
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateOrderStatusRequest carries the new order status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid shipped completed cancelled"`
}

// UpdateOrderStatus transitions an order's status. Cancelling restocks
// every line item in the same transaction.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("orders", "status")

	clientID, ok := clientIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order ID"})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	db := database.GetDB()
	var order model.Order

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Preload("Items").Where("id = ? AND client_id = ?", uint(id), clientID).First(&order)
		if result.Error != nil {
			return result.Error
		}
		if order.Status == model.OrderStatusCancelled {
			return echo.NewHTTPError(http.StatusConflict, "order is cancelled")
		}

		if req.Status == model.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := tx.Model(&model.Product{}).
					Where("id = ? AND client_id = ?", item.ProductID, clientID).
					Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
					return err
				}
			}
		}

		order.Status = req.Status
		return tx.Save(&order).Error
	})
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return c.JSON(httpErr.Code, echo.Map{"error": httpErr.Message})
		}
		if store.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		log.Error("Failed to update order status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
	}

	dispatcher.Dispatch(db, clientID, "order."+req.Status, order)
	return c.JSON(http.StatusOK, order)
}
