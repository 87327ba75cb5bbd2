package models

import "time"

const (
	ActivityFollow = "follow"
	ActivityLike   = "like"
)

// Activity is a notification for RecipientID about something ActorID did
type Activity struct {
	ID          uint      `json:"id" gorm:"primaryKey" bson:"-"`
	Type        string    `json:"type" gorm:"size:20;index" bson:"type"`
	ActorID     uint      `json:"actor_id" gorm:"index" bson:"actor_id"`
	RecipientID uint      `json:"recipient_id" gorm:"index" bson:"recipient_id"`
	MessageID   uint      `json:"message_id,omitempty" bson:"message_id,omitempty"`
	CreatedAt   time.Time `json:"created_at" gorm:"index" bson:"created_at"`
}
