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

// INotificationService defines the interface for notification operations.
type INotificationService interface {
	Create(ctx context.Context, userID, inquiryID primitive.ObjectID, message string) (*models.Notification, error)
	CreateForUsers(ctx context.Context, userIDs []primitive.ObjectID, inquiryID primitive.ObjectID, message string) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID primitive.ObjectID) error
	// MarkPropertySold flips property_sold on every notification whose
	// inquiry references the given property. Returns the number modified.
	MarkPropertySold(ctx context.Context, propertyID primitive.ObjectID) (int64, error)
}

const notificationsCollection = "notifications"

// notificationService implements INotificationService.
type notificationService struct {
	db *mongo.Database
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database) INotificationService {
	return &notificationService{db: db}
}

// Create inserts one notification. The inquiry and user are expected to
// exist; call sites only create notifications from live inquiry events.
func (s *notificationService) Create(ctx context.Context, userID, inquiryID primitive.ObjectID, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		InquiryID: inquiryID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Collection(notificationsCollection).InsertOne(ctx, n); err != nil {
		return nil, fmt.Errorf("error inserting notification for user %s: %w", userID.Hex(), err)
	}
	return n, nil
}

// CreateForUsers inserts one notification per recipient in a single write.
func (s *notificationService) CreateForUsers(ctx context.Context, userIDs []primitive.ObjectID, inquiryID primitive.ObjectID, message string) error {
	if len(userIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(userIDs))
	for _, userID := range userIDs {
		docs = append(docs, &models.Notification{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			InquiryID: inquiryID,
			Message:   message,
			Read:      false,
			CreatedAt: now,
		})
	}

	if _, err := s.db.Collection(notificationsCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("error inserting %d notifications for inquiry %s: %w", len(docs), inquiryID.Hex(), err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (s *notificationService) ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(notificationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips the read flag. The userID filter enforces ownership: a user
// cannot acknowledge someone else's notification.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	filter := bson.M{"_id": notificationID, "user_id": userID}
	update := bson.M{"$set": bson.M{"read": true}}
	result, err := s.db.Collection(notificationsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error marking notification %s read: %w", notificationID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkPropertySold is a denormalized fan-out write: it resolves the inquiry
// IDs referencing the property, then batch-updates every notification that
// references one of them. This trades write cost for simpler downstream
// reads; notifications for other properties are untouched.
func (s *notificationService) MarkPropertySold(ctx context.Context, propertyID primitive.ObjectID) (int64, error) {
	inquiryIDs, err := s.inquiryIDsForProperty(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	if len(inquiryIDs) == 0 {
		return 0, nil
	}

	filter := bson.M{"inquiry_id": bson.M{"$in": inquiryIDs}}
	update := bson.M{"$set": bson.M{"property_sold": true}}
	result, err := s.db.Collection(notificationsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications sold for property %s: %w", propertyID.Hex(), err)
	}
	return result.ModifiedCount, nil
}

func (s *notificationService) inquiryIDsForProperty(ctx context.Context, propertyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query inquiries for property %s: %w", propertyID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode inquiry IDs: %w", err)
	}

	ids := make([]primitive.ObjectID, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids, nil
}
