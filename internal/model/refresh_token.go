package model

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken backs the refresh flow: it is looked up by token value,
// checked for revocation and expiry, then rotated.
type RefreshToken struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Token     string         `json:"-" gorm:"uniqueIndex"` // Never expose the actual token in JSON responses
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time      `json:"expires_at"`
	Revoked   bool           `json:"revoked" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook will be called before creating a new RefreshToken record
func (t *RefreshToken) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = generateSecureID("ref_")
	}
	if t.Token == "" {
		t.Token = generateSecureToken()
	}
	return nil
}

// IsExpired checks if the token is expired
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks if the token is valid (not expired and not revoked)
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
