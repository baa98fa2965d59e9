package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hearthside/estate/internal/auth"
	"hearthside/estate/internal/config"
	"hearthside/estate/internal/db"
	"hearthside/estate/internal/models"
)

// ErrEmailExists is returned when an attempt is made to use an email that already exists.
var ErrEmailExists = errors.New("email already in use by another account")

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	CreateUser(ctx context.Context, name, email, password, adminCode string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string, prefs *models.NotificationPreferences) error
	SetAvatar(ctx context.Context, userID primitive.ObjectID, avatarKey string) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetAdminIDs(ctx context.Context) ([]primitive.ObjectID, error)
	GetAdminEmails(ctx context.Context) ([]string, error)
	// IsEffectiveAdmin computes the admin flag the platform actually honors:
	// the stored flag OR a stored admin code matching the configured one.
	IsEffectiveAdmin(user *models.User) bool
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// CreateUser creates a new user with a bcrypt password hash. Supplying the
// configured admin code stores it on the user, which makes them an effective
// admin without flipping is_admin.
func (s *userService) CreateUser(ctx context.Context, name, email, password, adminCode string) (*models.User, error) {
	collection := s.db.Collection(usersCollection)

	// Ensure email uniqueness among non-deleted users before inserting.
	count, err := collection.CountDocuments(ctx, bson.M{"email": email, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", email, err)
	}

	now := time.Now().UTC()
	newUser := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
		Deleted:      false,
		NotificationPreferences: &models.NotificationPreferences{
			InquiryReceived: true,
			InquiryAnswered: true,
			PropertySold:    true,
		},
	}
	if adminCode != "" {
		newUser.AdminCode = adminCode
	}

	operation := func() error {
		newUser.ID = primitive.NewObjectID()
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "email_1") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("error inserting new user for %s: %w", email, err)
	}

	return newUser, nil
}

// FindByEmail finds a non-deleted user by their email address.
// Returns nil and mongo.ErrNoDocuments if not found.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"email": email, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// FindByID finds a non-deleted user by their ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// UpdateProfile updates mutable profile fields.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string, prefs *models.NotificationPreferences) error {
	collection := s.db.Collection(usersCollection)

	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if phone != "" {
		set["phone"] = phone
	}
	if prefs != nil {
		set["notification_preferences"] = prefs
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": userID, "deleted": false}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating profile for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetAvatar stores the S3 key of the user's avatar image.
func (s *userService) SetAvatar(ctx context.Context, userID primitive.ObjectID, avatarKey string) error {
	collection := s.db.Collection(usersCollection)
	update := bson.M{"$set": bson.M{"avatar_key": avatarKey, "updated_at": time.Now().UTC()}}
	result, err := collection.UpdateOne(ctx, bson.M{"_id": userID, "deleted": false}, update)
	if err != nil {
		return fmt.Errorf("error setting avatar for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListUsers returns all non-deleted users, newest first.
func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	collection := s.db.Collection(usersCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// adminFilter matches every user the platform treats as admin: the explicit
// flag or a stored admin code equal to the configured one.
func (s *userService) adminFilter() bson.M {
	return bson.M{
		"deleted": false,
		"$or": bson.A{
			bson.M{"is_admin": true},
			bson.M{"admin_code": s.cfg.AdminCode},
		},
	}
}

// GetAdminIDs returns the IDs of all effective admins. Used for the
// notification fan-out when an inquiry is created.
func (s *userService) GetAdminIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	collection := s.db.Collection(usersCollection)
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := collection.Find(ctx, s.adminFilter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin IDs: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode admin IDs: %w", err)
	}

	ids := make([]primitive.ObjectID, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids, nil
}

// GetAdminEmails returns the email addresses of all effective admins.
func (s *userService) GetAdminEmails(ctx context.Context) ([]string, error) {
	collection := s.db.Collection(usersCollection)
	opts := options.Find().SetProjection(bson.M{"email": 1})
	cursor, err := collection.Find(ctx, s.adminFilter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin emails: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Email string `bson:"email"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode admin emails: %w", err)
	}

	emails := make([]string, 0, len(results))
	for _, res := range results {
		if res.Email != "" {
			emails = append(emails, res.Email)
		}
	}
	return emails, nil
}

// IsEffectiveAdmin computes the admin flag downstream handlers honor.
func (s *userService) IsEffectiveAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	if user.AdminCode != "" && user.AdminCode == s.cfg.AdminCode {
		log.Printf("User %s granted admin via stored admin code", user.ID.Hex())
		return true
	}
	return false
}
