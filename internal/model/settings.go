package model

import (
	"time"

	"gorm.io/gorm"
)

// ClientSettings is the per-client settings singleton. A row is created
// with defaults on first read. EmbedKey is the public key resolving the
// tenant's shop embed; ShopAllowedDomains gates which origins may use it.
type ClientSettings struct {
	ID                 uint                   `json:"id" gorm:"primaryKey"`
	ClientID           uint                   `json:"client_id" gorm:"uniqueIndex;not null"`
	Timezone           string                 `json:"timezone" gorm:"type:varchar(50);default:'UTC'"`
	BusinessHours      map[string]interface{} `json:"business_hours" gorm:"serializer:json"`
	BrandColor         string                 `json:"brand_color" gorm:"type:varchar(7);default:'#000000'"`
	LogoURL            string                 `json:"logo_url" gorm:"type:varchar(500)"`
	NotifyByEmail      bool                   `json:"notify_by_email" gorm:"default:true"`
	NotifyBySMS        bool                   `json:"notify_by_sms" gorm:"default:false"`
	EmbedKey           string                 `json:"embed_key" gorm:"type:varchar(64);uniqueIndex"`
	ShopAllowedDomains []string               `json:"shop_allowed_domains" gorm:"serializer:json"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	DeletedAt          gorm.DeletedAt         `json:"-" gorm:"index"`
}

// BeforeCreate assigns the settings row its public embed key.
func (s *ClientSettings) BeforeCreate(tx *gorm.DB) error {
	if s.EmbedKey == "" {
		s.EmbedKey = generateSecureID("em_")
	}
	return nil
}
