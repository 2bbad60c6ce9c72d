package model

import (
	"time"

	"gorm.io/gorm"
)

// Message directions.
const (
	MessageDirectionInbound  = "inbound"
	MessageDirectionOutbound = "outbound"
)

// Conversation groups the chat messages exchanged with a contact.
type Conversation struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	ClientID      uint           `json:"client_id" gorm:"index;not null"`
	ContactID     uint           `json:"contact_id" gorm:"index;not null"`
	Channel       string         `json:"channel" gorm:"type:varchar(20);default:'web'"`
	Status        string         `json:"status" gorm:"type:varchar(20);default:'open'"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// Message is a single chat message inside a conversation.
type Message struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ClientID       uint           `json:"client_id" gorm:"index;not null"`
	ConversationID uint           `json:"conversation_id" gorm:"index;not null"`
	Direction      string         `json:"direction" gorm:"type:varchar(10);not null"`
	Body           string         `json:"body" gorm:"type:text;not null"`
	AuthorID       *uint          `json:"author_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}
