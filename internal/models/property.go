package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Price defines the structure for monetary values.
type Price struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// Address holds the location of a property.
type Address struct {
	Street      string `bson:"street" json:"street"`
	City        string `bson:"city" json:"city"`
	State       string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode  string `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
	CountryCode string `bson:"country_code" json:"country_code"`
}

// Property represents a listed property.
type Property struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CompanyID   primitive.ObjectID `bson:"company_id" json:"company_id"`
	Title       string             `bson:"title" json:"title"`
	Body        string             `bson:"body" json:"body"`
	Address     Address            `bson:"address" json:"address"`
	Price       *Price             `bson:"price,omitempty" json:"price,omitempty"`
	Bedrooms    int                `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms   int                `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Images      []string           `bson:"images" json:"images"` // S3 keys
	Sold        bool               `bson:"sold" json:"sold"`
	SoldAt      *time.Time         `bson:"sold_at,omitempty" json:"sold_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	Deleted     bool               `bson:"deleted" json:"-"` // Soft delete flag
}
