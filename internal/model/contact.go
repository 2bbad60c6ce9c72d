package model

import (
	"time"

	"gorm.io/gorm"
)

// Contact represents a CRM contact owned by a client tenant. Email is
// unique per tenant, not globally.
type Contact struct {
	ID           uint                   `json:"id" gorm:"primaryKey"`
	ClientID     uint                   `json:"client_id" gorm:"index;not null;uniqueIndex:idx_contact_client_email"`
	FirstName    string                 `json:"first_name" gorm:"type:varchar(100)"`
	LastName     string                 `json:"last_name" gorm:"type:varchar(100)"`
	Email        string                 `json:"email" gorm:"type:varchar(100);uniqueIndex:idx_contact_client_email"`
	Phone        string                 `json:"phone" gorm:"type:varchar(20)"`
	Company      string                 `json:"company" gorm:"type:varchar(100)"`
	Source       string                 `json:"source" gorm:"type:varchar(50)"`
	Tags         []string               `json:"tags" gorm:"serializer:json"`
	CustomFields map[string]interface{} `json:"custom_fields" gorm:"serializer:json"`
	CreatedBy    uint                   `json:"created_by" gorm:"index"`
	UpdatedBy    uint                   `json:"updated_by"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	DeletedAt    gorm.DeletedAt         `json:"-" gorm:"index"`
}

// ContactHistory records notable events on a contact, including merges.
type ContactHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ClientID  uint      `json:"client_id" gorm:"index;not null"`
	ContactID uint      `json:"contact_id" gorm:"index;not null"`
	Action    string    `json:"action" gorm:"type:varchar(50);not null"`
	Detail    string    `json:"detail" gorm:"type:text"`
	ActorID   uint      `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}
