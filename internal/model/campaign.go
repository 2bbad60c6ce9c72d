package model

import (
	"time"

	"gorm.io/gorm"
)

// Campaign types and statuses.
const (
	CampaignTypeEmail = "email"
	CampaignTypeSMS   = "sms"

	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSent      = "sent"
)

// Campaign is an outbound email or SMS blast targeted at segments.
type Campaign struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ClientID     uint           `json:"client_id" gorm:"index;not null"`
	Name         string         `json:"name" gorm:"type:varchar(200);not null"`
	Type         string         `json:"type" gorm:"type:varchar(20);not null;default:'email'"`
	Status       string         `json:"status" gorm:"type:varchar(20);default:'draft'"`
	Subject      string         `json:"subject" gorm:"type:varchar(200)"`
	Body         string         `json:"body" gorm:"type:text"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	SentCount    int            `json:"sent_count" gorm:"default:0"`
	OpenedCount  int            `json:"opened_count" gorm:"default:0"`
	ClickedCount int            `json:"clicked_count" gorm:"default:0"`
	CreatedBy    uint           `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Segments []Segment `json:"segments,omitempty" gorm:"many2many:campaign_segments"`
}

// Segment is a saved contact filter used for campaign targeting.
type Segment struct {
	ID        uint                   `json:"id" gorm:"primaryKey"`
	ClientID  uint                   `json:"client_id" gorm:"index;not null"`
	Name      string                 `json:"name" gorm:"type:varchar(100);not null"`
	Filters   map[string]interface{} `json:"filters" gorm:"serializer:json"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	DeletedAt gorm.DeletedAt         `json:"-" gorm:"index"`
}
