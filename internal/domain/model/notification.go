package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType categorises a user notification
type NotificationType string

const (
	NotificationTypeProjectUpdate NotificationType = "project_update"
	NotificationTypeMessage       NotificationType = "message"
	NotificationTypeSystem        NotificationType = "system"
	NotificationTypeReminder      NotificationType = "reminder"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeProjectUpdate, NotificationTypeMessage, NotificationTypeSystem, NotificationTypeReminder:
		return true
	}
	return false
}

// Notification is stored in the notifications collection and shown in the
// portal's notification bell.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user" json:"user_id"`
	Type      NotificationType   `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Link      string             `bson:"link,omitempty" json:"link,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	ReadAt    *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
