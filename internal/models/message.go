package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength is the longest warble accepted
const MaxMessageLength = 140

// Message is a single warble
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"size:140;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      User      `json:"user" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate stamps the message with the current UTC time
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}

// MessageForm is the body of POST /messages/new and POST /api/v1/messages
type MessageForm struct {
	Text string `form:"text" json:"text" validate:"required,max=140"`
}

// MessageView is the JSON shape of a message
type MessageView struct {
	ID        uint        `json:"id"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	Author    UserCompact `json:"author"`
	LikeCount int64       `json:"like_count"`
	IsLiked   bool        `json:"is_liked"`
}
