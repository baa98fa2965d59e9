package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hearthside/estate/internal/models"
)

// PropertyFilter narrows property listing queries.
type PropertyFilter struct {
	CompanyID *primitive.ObjectID
	Sold      *bool
	MinPrice  *float64
	MaxPrice  *float64
	Limit     int
	Skip      int
}

// IPropertyService defines the interface for property operations.
type IPropertyService interface {
	Create(ctx context.Context, property *models.Property) (*models.Property, error)
	FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]models.Property, error)
	Update(ctx context.Context, propertyID primitive.ObjectID, update *models.Property) (*models.Property, error)
	Delete(ctx context.Context, propertyID primitive.ObjectID) error
	MarkSold(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	AddImage(ctx context.Context, propertyID primitive.ObjectID, imageKey string) error
}

const propertiesCollection = "properties"

// propertyService implements IPropertyService.
type propertyService struct {
	db *mongo.Database
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(db *mongo.Database) IPropertyService {
	return &propertyService{db: db}
}

func (s *propertyService) Create(ctx context.Context, property *models.Property) (*models.Property, error) {
	if property.Title == "" {
		return nil, fmt.Errorf("property title is required")
	}
	if property.CompanyID.IsZero() {
		return nil, fmt.Errorf("property company is required")
	}

	now := time.Now().UTC()
	property.ID = primitive.NewObjectID()
	property.CreatedAt = now
	property.UpdatedAt = now
	property.Sold = false
	property.Deleted = false
	if property.Images == nil {
		property.Images = []string{}
	}

	if _, err := s.db.Collection(propertiesCollection).InsertOne(ctx, property); err != nil {
		return nil, fmt.Errorf("error inserting property %q: %w", property.Title, err)
	}
	return property, nil
}

func (s *propertyService) FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	var property models.Property
	filter := bson.M{"_id": propertyID, "deleted": false}
	err := s.db.Collection(propertiesCollection).FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding property %s: %w", propertyID.Hex(), err)
	}
	return &property, nil
}

func (s *propertyService) List(ctx context.Context, filter PropertyFilter) ([]models.Property, error) {
	query := bson.M{"deleted": false}
	if filter.CompanyID != nil {
		query["company_id"] = *filter.CompanyID
	}
	if filter.Sold != nil {
		query["sold"] = *filter.Sold
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		priceRange := bson.M{}
		if filter.MinPrice != nil {
			priceRange["$gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			priceRange["$lte"] = *filter.MaxPrice
		}
		query["price.value"] = priceRange
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(filter.Skip))

	cursor, err := s.db.Collection(propertiesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}

func (s *propertyService) Update(ctx context.Context, propertyID primitive.ObjectID, update *models.Property) (*models.Property, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Title != "" {
		set["title"] = update.Title
	}
	if update.Body != "" {
		set["body"] = update.Body
	}
	if update.Price != nil {
		set["price"] = update.Price
	}
	if update.Address != (models.Address{}) {
		set["address"] = update.Address
	}
	if update.Bedrooms > 0 {
		set["bedrooms"] = update.Bedrooms
	}
	if update.Bathrooms > 0 {
		set["bathrooms"] = update.Bathrooms
	}

	filter := bson.M{"_id": propertyID, "deleted": false}
	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error updating property %s: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.FindByID(ctx, propertyID)
}

// Delete soft-deletes a property.
func (s *propertyService) Delete(ctx context.Context, propertyID primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}
	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting property %s: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkSold flips the sold flag. The notification fan-out for affected
// inquiries is a separate explicit batch update owned by the notification
// service; callers run both.
func (s *propertyService) MarkSold(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{"$set": bson.M{"sold": true, "sold_at": now, "updated_at": now}}
	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("error marking property %s sold: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.FindByID(ctx, propertyID)
}

// AddImage appends a processed image key to the property. Used by the image
// pipeline after resize/upload completes.
func (s *propertyService) AddImage(ctx context.Context, propertyID primitive.ObjectID, imageKey string) error {
	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error adding image to property %s: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
