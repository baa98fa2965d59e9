package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InquiryStatus is the lifecycle status of an inquiry.
type InquiryStatus string

const (
	InquiryStatusSubmitted   InquiryStatus = "submitted"
	InquiryStatusUnderReview InquiryStatus = "under_review"
	InquiryStatusAnswered    InquiryStatus = "answered"
)

// CanTransition reports whether an inquiry may move from one status to
// another. Transitions are linear and admin-driven; there are no reverse
// transitions.
func (s InquiryStatus) CanTransition(to InquiryStatus) bool {
	switch s {
	case InquiryStatusSubmitted:
		return to == InquiryStatusUnderReview || to == InquiryStatusAnswered
	case InquiryStatusUnderReview:
		return to == InquiryStatusAnswered
	default:
		return false
	}
}

// Inquiry represents a user's question about a property.
type Inquiry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	PropertyID primitive.ObjectID `bson:"property_id" json:"property_id"`
	Message    string             `bson:"message" json:"message"`
	Status     InquiryStatus      `bson:"status" json:"status"`
	Response   string             `bson:"response,omitempty" json:"response,omitempty"` // Admin answer text
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
