package model

import (
	"time"

	"gorm.io/gorm"
)

// Deal statuses.
const (
	DealStatusOpen = "open"
	DealStatusWon  = "won"
	DealStatusLost = "lost"
)

// Pipeline groups the ordered stages a deal moves through.
type Pipeline struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null;uniqueIndex:idx_pipeline_client_name"`
	Name      string         `json:"name" gorm:"type:varchar(100);uniqueIndex:idx_pipeline_client_name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Stages []Stage `json:"stages,omitempty" gorm:"foreignKey:PipelineID"`
}

// Stage is one step in a pipeline, ordered by Position.
type Stage struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ClientID   uint           `json:"client_id" gorm:"index;not null"`
	PipelineID uint           `json:"pipeline_id" gorm:"index;not null"`
	Name       string         `json:"name" gorm:"type:varchar(100);not null"`
	Position   int            `json:"position" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Deal represents a sales opportunity tied to a contact and a pipeline
// stage. All referenced entities must belong to the same client.
type Deal struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ClientID   uint           `json:"client_id" gorm:"index;not null"`
	Title      string         `json:"title" gorm:"type:varchar(200);not null"`
	Value      float64        `json:"value" gorm:"type:decimal(12,2);default:0"`
	Currency   string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Status     string         `json:"status" gorm:"type:varchar(20);default:'open'"`
	ContactID  *uint          `json:"contact_id,omitempty" gorm:"index"`
	PipelineID uint           `json:"pipeline_id" gorm:"index;not null"`
	StageID    uint           `json:"stage_id" gorm:"index;not null"`
	AssigneeID *uint          `json:"assignee_id,omitempty" gorm:"index"`
	Notes      string         `json:"notes" gorm:"type:text"`
	CreatedBy  uint           `json:"created_by"`
	UpdatedBy  uint           `json:"updated_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
