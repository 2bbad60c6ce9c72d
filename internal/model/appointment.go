package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment statuses. Cancelled and no-show appointments do not block
// the staff calendar.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusNoShow    = "no_show"
)

// Staff is a bookable member of a client's team.
type Staff struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Email     string         `json:"email" gorm:"type:varchar(100)"`
	Phone     string         `json:"phone" gorm:"type:varchar(20)"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Service is a bookable offering with a default duration.
type Service struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ClientID    uint           `json:"client_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	DurationMin int            `json:"duration_min" gorm:"default:30"`
	Price       float64        `json:"price" gorm:"type:decimal(12,2);default:0"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Appointment books a staff member for a contact over [StartTime, EndTime).
type Appointment struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	ContactID uint           `json:"contact_id" gorm:"index;not null"`
	StaffID   uint           `json:"staff_id" gorm:"index;not null"`
	ServiceID uint           `json:"service_id" gorm:"index;not null"`
	StartTime time.Time      `json:"start_time" gorm:"index;not null"`
	EndTime   time.Time      `json:"end_time" gorm:"not null"`
	Status    string         `json:"status" gorm:"type:varchar(20);default:'scheduled'"`
	Notes     string         `json:"notes" gorm:"type:text"`
	CreatedBy uint           `json:"created_by"`
	UpdatedBy uint           `json:"updated_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TimeOff blocks a staff member's calendar over [StartTime, EndTime).
type TimeOff struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ClientID  uint           `json:"client_id" gorm:"index;not null"`
	StaffID   uint           `json:"staff_id" gorm:"index;not null"`
	StartTime time.Time      `json:"start_time" gorm:"index;not null"`
	EndTime   time.Time      `json:"end_time" gorm:"not null"`
	Reason    string         `json:"reason" gorm:"type:varchar(200)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
