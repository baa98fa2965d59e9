package handlers_test

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, name, email, password, adminCode string) (*models.User, error) {
	args := m.Called(ctx, name, email, password, adminCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string, prefs *models.NotificationPreferences) error {
	args := m.Called(ctx, userID, name, phone, prefs)
	return args.Error(0)
}
func (m *MockUserService) SetAvatar(ctx context.Context, userID primitive.ObjectID, avatarKey string) error {
	args := m.Called(ctx, userID, avatarKey)
	return args.Error(0)
}
func (m *MockUserService) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}
func (m *MockUserService) GetAdminIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}
func (m *MockUserService) GetAdminEmails(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockUserService) IsEffectiveAdmin(user *models.User) bool {
	args := m.Called(user)
	return args.Bool(0)
}

// MockCompanyService
type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) Create(ctx context.Context, company *models.Company) (*models.Company, error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}
func (m *MockCompanyService) FindByID(ctx context.Context, companyID primitive.ObjectID) (*models.Company, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}
func (m *MockCompanyService) List(ctx context.Context) ([]models.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Company), args.Error(1)
}
func (m *MockCompanyService) Update(ctx context.Context, companyID primitive.ObjectID, update *models.Company) (*models.Company, error) {
	args := m.Called(ctx, companyID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}
func (m *MockCompanyService) Delete(ctx context.Context, companyID primitive.ObjectID) error {
	args := m.Called(ctx, companyID)
	return args.Error(0)
}
func (m *MockCompanyService) SetLogo(ctx context.Context, companyID primitive.ObjectID, logoKey string) error {
	args := m.Called(ctx, companyID, logoKey)
	return args.Error(0)
}

// MockPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) Create(ctx context.Context, property *models.Property) (*models.Property, error) {
	args := m.Called(ctx, property)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) List(ctx context.Context, filter services.PropertyFilter) ([]models.Property, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}
func (m *MockPropertyService) Update(ctx context.Context, propertyID primitive.ObjectID, update *models.Property) (*models.Property, error) {
	args := m.Called(ctx, propertyID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) Delete(ctx context.Context, propertyID primitive.ObjectID) error {
	args := m.Called(ctx, propertyID)
	return args.Error(0)
}
func (m *MockPropertyService) MarkSold(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) AddImage(ctx context.Context, propertyID primitive.ObjectID, imageKey string) error {
	args := m.Called(ctx, propertyID, imageKey)
	return args.Error(0)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) Create(ctx context.Context, userID, propertyID primitive.ObjectID, message string) (*models.Inquiry, error) {
	args := m.Called(ctx, userID, propertyID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) CreateFromClient(ctx context.Context, userID, propertyID primitive.ObjectID, message string) error {
	args := m.Called(ctx, userID, propertyID, message)
	return args.Error(0)
}
func (m *MockInquiryService) FindByID(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) ListAll(ctx context.Context, status *models.InquiryStatus) ([]models.Inquiry, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) Review(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) Respond(ctx context.Context, inquiryID primitive.ObjectID, response string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, response)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) NotifySold(ctx context.Context, propertyID primitive.ObjectID) error {
	args := m.Called(ctx, propertyID)
	return args.Error(0)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, userID, inquiryID primitive.ObjectID, message string) (*models.Notification, error) {
	args := m.Called(ctx, userID, inquiryID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}
func (m *MockNotificationService) CreateForUsers(ctx context.Context, userIDs []primitive.ObjectID, inquiryID primitive.ObjectID, message string) error {
	args := m.Called(ctx, userIDs, inquiryID, message)
	return args.Error(0)
}
func (m *MockNotificationService) ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}
func (m *MockNotificationService) MarkRead(ctx context.Context, notificationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}
func (m *MockNotificationService) MarkPropertySold(ctx context.Context, propertyID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTaskEnqueuer
type MockTaskEnqueuer struct {
	mock.Mock
}

func (m *MockTaskEnqueuer) EnqueueEmail(ctx context.Context, to []string, templateID string, data map[string]interface{}) error {
	args := m.Called(ctx, to, templateID, data)
	return args.Error(0)
}
func (m *MockTaskEnqueuer) EnqueueImageProcess(ctx context.Context, s3Key, imageType, entityID string) error {
	args := m.Called(ctx, s3Key, imageType, entityID)
	return args.Error(0)
}

// MockMediaStorage
type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.String(0), args.Error(1)
}
func (m *MockMediaStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
func (m *MockMediaStorage) GeneratePresignedGetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}
func (m *MockMediaStorage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}
