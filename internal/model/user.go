package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a platform account. Non-admin users carry exactly one of
// the agency/client foreign keys depending on their role.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	FirstName string         `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string         `json:"last_name" gorm:"type:varchar(100)"`
	Role      string         `json:"role" gorm:"type:varchar(50);not null;default:'CLIENT_USER'"`
	AgencyID  *uint          `json:"agency_id,omitempty" gorm:"index"`
	ClientID  *uint          `json:"client_id,omitempty" gorm:"index"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
