package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailTemplate holds a localized email subject/body pair with {{.key}}
// placeholders substituted at delivery time.
type EmailTemplate struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TemplateID string             `bson:"template_id" json:"template_id"` // e.g. "inquiry_received"
	Locale     string             `bson:"locale" json:"locale"`           // e.g. "en-US"
	Subject    string             `bson:"subject" json:"subject"`
	Body       string             `bson:"body" json:"body"`
}

// Known template IDs.
const (
	TemplateInquiryReceived = "inquiry_received"
	TemplateInquiryAnswered = "inquiry_answered"
	TemplatePropertySold    = "property_sold"
)
