package model

import (
	"time"

	"gorm.io/gorm"
)

// Webhook is a client-configured HTTP endpoint notified of matching
// events. Deliveries are fire-and-forget; a failing endpoint never fails
// the triggering request.
type Webhook struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	URL       string         `json:"url" gorm:"type:varchar(500);not null"`
	Secret    string         `json:"-" gorm:"type:varchar(100)"`
	Events    []string       `json:"events" gorm:"serializer:json"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the signing secret.
func (w *Webhook) BeforeCreate(tx *gorm.DB) error {
	if w.Secret == "" {
		w.Secret = generateSecureToken()
	}
	return nil
}
