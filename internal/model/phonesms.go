package model

import (
	"time"

	"gorm.io/gorm"
)

// CallLog records an inbound or outbound phone call.
type CallLog struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ClientID    uint           `json:"client_id" gorm:"index;not null"`
	ContactID   *uint          `json:"contact_id,omitempty" gorm:"index"`
	StaffID     *uint          `json:"staff_id,omitempty" gorm:"index"`
	Direction   string         `json:"direction" gorm:"type:varchar(10);not null"`
	FromNumber  string         `json:"from_number" gorm:"type:varchar(20)"`
	ToNumber    string         `json:"to_number" gorm:"type:varchar(20)"`
	DurationSec int            `json:"duration_sec" gorm:"default:0"`
	Status      string         `json:"status" gorm:"type:varchar(20);default:'completed'"`
	Notes       string         `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// SMSMessage records a single SMS. Sending is recorded as queued; the
// provider client is an interface-backed double.
type SMSMessage struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ClientID   uint           `json:"client_id" gorm:"index;not null"`
	ContactID  *uint          `json:"contact_id,omitempty" gorm:"index"`
	Direction  string         `json:"direction" gorm:"type:varchar(10);not null"`
	FromNumber string         `json:"from_number" gorm:"type:varchar(20)"`
	ToNumber   string         `json:"to_number" gorm:"type:varchar(20)"`
	Body       string         `json:"body" gorm:"type:text;not null"`
	Status     string         `json:"status" gorm:"type:varchar(20);default:'queued'"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
