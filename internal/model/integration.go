package model

import (
	"time"

	"gorm.io/gorm"
)

// Integration types and statuses.
const (
	IntegrationTypeGoogleAnalytics = "GOOGLE_ANALYTICS"
	IntegrationTypeMetaAds         = "META_ADS"
	IntegrationTypeWhatsApp        = "WHATSAPP"

	IntegrationStatusPending   = "PENDING"
	IntegrationStatusConnected = "CONNECTED"
	IntegrationStatusError     = "ERROR"
)

// Integration holds a client's connection to an analytics or messaging
// provider. Credentials are encrypted at rest; sync failures are recorded
// on Status/ErrorMessage rather than retried.
type Integration struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ClientID     uint           `json:"client_id" gorm:"index;not null;uniqueIndex:idx_integration_client_type"`
	Type         string         `json:"type" gorm:"type:varchar(50);not null;uniqueIndex:idx_integration_client_type"`
	Credentials  string         `json:"-" gorm:"type:text"`
	Status       string         `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	LastSyncedAt *time.Time     `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
