package model

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Product is a sellable item in a client's shop. SKU is unique per tenant.
type Product struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ClientID    uint           `json:"client_id" gorm:"index;not null;uniqueIndex:idx_product_client_sku"`
	Name        string         `json:"name" gorm:"type:varchar(200);not null"`
	SKU         string         `json:"sku" gorm:"type:varchar(50);uniqueIndex:idx_product_client_sku"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock       int            `json:"stock" gorm:"default:0"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Order is a purchase made by a contact. Total is computed server-side
// from the verified product rows, never taken from the payload.
type Order struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	ContactID *uint          `json:"contact_id,omitempty" gorm:"index"`
	Status    string         `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Total     float64        `json:"total" gorm:"type:decimal(12,2);default:0"`
	Currency  string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is one product line inside an order. UnitPrice snapshots the
// product price at purchase time.
type OrderItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uint      `json:"order_id" gorm:"index;not null"`
	ProductID uint      `json:"product_id" gorm:"index;not null"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	UnitPrice float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time `json:"created_at"`
}
