package model

import (
	"time"

	"gorm.io/gorm"
)

// Payment transaction statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// PaymentTransaction records one charge attempt against a gateway.
type PaymentTransaction struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	ClientID      uint           `json:"client_id" gorm:"index;not null"`
	OrderID       *uint          `json:"order_id,omitempty" gorm:"index"`
	ContactID     *uint          `json:"contact_id,omitempty" gorm:"index"`
	Amount        float64        `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency      string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Status        string         `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Gateway       string         `json:"gateway" gorm:"type:varchar(50)"`
	Reference     string         `json:"reference" gorm:"type:varchar(100)"`
	FailureReason string         `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the transaction its public id.
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateSecureID("pay_")
	}
	return nil
}
