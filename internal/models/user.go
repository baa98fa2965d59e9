package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreferences allows users to control email notifications.
type NotificationPreferences struct {
	InquiryReceived bool `bson:"inquiry_received" json:"inquiry_received"`
	InquiryAnswered bool `bson:"inquiry_answered" json:"inquiry_answered"`
	PropertySold    bool `bson:"property_sold" json:"property_sold"`
}

// User represents a user in the system.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"` // Store hash, not plaintext
	IsAdmin      bool               `bson:"is_admin" json:"is_admin"`
	// AdminCode is a per-user copy of the platform admin code, supplied at
	// signup. A user whose stored code matches the configured one is treated
	// as admin even when is_admin is false.
	AdminCode               string                   `bson:"admin_code,omitempty" json:"-"`
	Phone                   string                   `bson:"phone,omitempty" json:"phone,omitempty"`
	AvatarKey               string                   `bson:"avatar_key,omitempty" json:"avatar_key,omitempty"`
	NotificationPreferences *NotificationPreferences `bson:"notification_preferences,omitempty" json:"notification_preferences,omitempty"`
	CreatedAt               time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time                `bson:"updated_at" json:"updated_at"`
	Deleted                 bool                     `bson:"deleted" json:"-"` // Soft delete flag
}
