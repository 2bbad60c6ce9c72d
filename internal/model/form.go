package model

import (
	"time"

	"gorm.io/gorm"
)

// Form is an embeddable lead-capture form. Fields holds the declarative
// field schema rendered by the embed widget.
type Form struct {
	ID             uint                     `json:"id" gorm:"primaryKey"`
	ClientID       uint                     `json:"client_id" gorm:"index;not null"`
	Name           string                   `json:"name" gorm:"type:varchar(100);not null"`
	Key            string                   `json:"key" gorm:"type:varchar(64);uniqueIndex"`
	Fields         []map[string]interface{} `json:"fields" gorm:"serializer:json"`
	AllowedDomains []string                 `json:"allowed_domains" gorm:"serializer:json"`
	Active         bool                     `json:"active" gorm:"default:true"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	DeletedAt      gorm.DeletedAt           `json:"-" gorm:"index"`
}

// BeforeCreate assigns the form its public embed key.
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.Key == "" {
		f.Key = generateSecureID("fm_")
	}
	return nil
}

// FormSubmission is one submitted payload, optionally linked to the
// contact it created or matched.
type FormSubmission struct {
	ID        uint                   `json:"id" gorm:"primaryKey"`
	ClientID  uint                   `json:"client_id" gorm:"index;not null"`
	FormID    uint                   `json:"form_id" gorm:"index;not null"`
	Data      map[string]interface{} `json:"data" gorm:"serializer:json"`
	ContactID *uint                  `json:"contact_id,omitempty" gorm:"index"`
	Origin    string                 `json:"origin" gorm:"type:varchar(200)"`
	CreatedAt time.Time              `json:"created_at"`
}
