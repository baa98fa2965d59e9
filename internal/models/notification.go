package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a per-user record signaling that an inquiry-related event
// occurred. It always references an existing inquiry and user at creation.
type Notification struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"` // Recipient
	InquiryID    primitive.ObjectID `bson:"inquiry_id" json:"inquiry_id"`
	Message      string             `bson:"message" json:"message"`
	Read         bool               `bson:"read" json:"read"`
	PropertySold bool               `bson:"property_sold" json:"property_sold"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
