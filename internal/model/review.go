package model

import (
	"time"

	"gorm.io/gorm"
)

// Review is a customer review collected for a client.
type Review struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	ContactID *uint          `json:"contact_id,omitempty" gorm:"index"`
	Rating    int            `json:"rating" gorm:"not null"`
	Body      string         `json:"body" gorm:"type:text"`
	Source    string         `json:"source" gorm:"type:varchar(50);default:'widget'"`
	Reply     string         `json:"reply" gorm:"type:text"`
	RepliedAt *time.Time     `json:"replied_at,omitempty"`
	Published bool           `json:"published" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ReviewWidget is the embeddable review collector. AllowedDomains holds
// exact hosts or "*.suffix" wildcards checked against the request Origin.
type ReviewWidget struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ClientID       uint           `json:"client_id" gorm:"index;not null"`
	Name           string         `json:"name" gorm:"type:varchar(100);not null"`
	Key            string         `json:"key" gorm:"type:varchar(64);uniqueIndex"`
	AllowedDomains []string       `json:"allowed_domains" gorm:"serializer:json"`
	Active         bool           `json:"active" gorm:"default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the widget its public embed key.
func (w *ReviewWidget) BeforeCreate(tx *gorm.DB) error {
	if w.Key == "" {
		w.Key = generateSecureID("rw_")
	}
	return nil
}
