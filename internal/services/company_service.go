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

// ICompanyService defines the interface for company operations.
type ICompanyService interface {
	Create(ctx context.Context, company *models.Company) (*models.Company, error)
	FindByID(ctx context.Context, companyID primitive.ObjectID) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, companyID primitive.ObjectID, update *models.Company) (*models.Company, error)
	Delete(ctx context.Context, companyID primitive.ObjectID) error
	SetLogo(ctx context.Context, companyID primitive.ObjectID, logoKey string) error
}

const companiesCollection = "companies"

// companyService implements ICompanyService.
type companyService struct {
	db *mongo.Database
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(db *mongo.Database) ICompanyService {
	return &companyService{db: db}
}

func (s *companyService) Create(ctx context.Context, company *models.Company) (*models.Company, error) {
	if company.Name == "" {
		return nil, fmt.Errorf("company name is required")
	}

	now := time.Now().UTC()
	company.ID = primitive.NewObjectID()
	company.CreatedAt = now
	company.UpdatedAt = now
	company.Deleted = false

	if _, err := s.db.Collection(companiesCollection).InsertOne(ctx, company); err != nil {
		return nil, fmt.Errorf("error inserting company %q: %w", company.Name, err)
	}
	return company, nil
}

func (s *companyService) FindByID(ctx context.Context, companyID primitive.ObjectID) (*models.Company, error) {
	var company models.Company
	filter := bson.M{"_id": companyID, "deleted": false}
	err := s.db.Collection(companiesCollection).FindOne(ctx, filter).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding company %s: %w", companyID.Hex(), err)
	}
	return &company, nil
}

func (s *companyService) List(ctx context.Context) ([]models.Company, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(companiesCollection).Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer cursor.Close(ctx)

	var companies []models.Company
	if err = cursor.All(ctx, &companies); err != nil {
		return nil, fmt.Errorf("failed to decode companies: %w", err)
	}
	return companies, nil
}

func (s *companyService) Update(ctx context.Context, companyID primitive.ObjectID, update *models.Company) (*models.Company, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if update.Description != "" {
		set["description"] = update.Description
	}
	if update.Email != "" {
		set["email"] = update.Email
	}
	if update.Phone != "" {
		set["phone"] = update.Phone
	}

	filter := bson.M{"_id": companyID, "deleted": false}
	result, err := s.db.Collection(companiesCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error updating company %s: %w", companyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.FindByID(ctx, companyID)
}

// Delete soft-deletes a company.
func (s *companyService) Delete(ctx context.Context, companyID primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": companyID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}
	result, err := s.db.Collection(companiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting company %s: %w", companyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetLogo stores the S3 key of the company logo.
func (s *companyService) SetLogo(ctx context.Context, companyID primitive.ObjectID, logoKey string) error {
	filter := bson.M{"_id": companyID, "deleted": false}
	update := bson.M{"$set": bson.M{"logo_key": logoKey, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(companiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error setting logo for company %s: %w", companyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
