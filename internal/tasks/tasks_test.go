package tasks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hearthside/estate/internal/config"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
	"hearthside/estate/internal/tasks"
)

// --- Mocks ---

// MockEmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

// MockEmailTemplateService
type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}
func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}
func (m *MockEmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	args := m.Called(ctx, templateID, locale)
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
func (m *MockPropertyService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, id)
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

// --- Tests ---

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	cfg := &config.Config{}

	p := tasks.NewTaskProcessor(cfg, mockEmailSender, nil, nil, nil, nil, mockTmplService)

	payloadData := map[string]interface{}{
		"name":     "Tester",
		"response": "Yes, it is still available.",
	}
	payloadBytes, _ := json.Marshal(tasks.EmailTaskPayload{
		To:         []string{"test@example.com"},
		TemplateID: models.TemplateInquiryAnswered,
		Locale:     "en-US",
		Data:       payloadData,
	})
	task := asynq.NewTask(tasks.TypeEmailDelivery, payloadBytes)

	expectedTemplate := &models.EmailTemplate{
		Subject: "Hello {{.name}}",
		Body:    "Agent response: {{.response}}",
	}
	mockTmplService.On("GetTemplate", mock.Anything, models.TemplateInquiryAnswered, "en-US").Return(expectedTemplate, nil)

	expectedTo := "test@example.com"
	expectedSubject := "Hello Tester"
	expectedBody := "Agent response: Yes, it is still available."

	mockEmailSender.On("Send",
		mock.Anything,
		[]string{expectedTo},
		expectedSubject,
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, fmt.Sprintf("To: %s", expectedTo), "Raw message should contain To address")
			expectedFrom := cfg.SmtpFromAddress
			if expectedFrom == "" {
				expectedFrom = "noreply@example.com"
			}
			assert.Contains(t, msgStr, fmt.Sprintf("From: %s", expectedFrom), "Raw message should contain From address")
			assert.Contains(t, msgStr, fmt.Sprintf("Subject: %s", expectedSubject), "Raw message should contain Subject")
			assert.Contains(t, msgStr, expectedBody, "Raw message should contain expected body content")
			return true
		}),
	).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, mockEmailSender, nil, nil, nil, nil, mockTmplService)

	payloadBytes, _ := json.Marshal(tasks.EmailTaskPayload{
		To:         []string{"test@example.com"},
		TemplateID: "nonexistent_template",
		Locale:     "en-US",
	})
	task := asynq.NewTask(tasks.TypeEmailDelivery, payloadBytes)

	mockTmplService.On("GetTemplate", mock.Anything, "nonexistent_template", "en-US").Return(nil, assert.AnError)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Error should be SkipRetry for template not found")
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleImageProcessTask_AttachesToProperty(t *testing.T) {
	mockStorage := new(MockMediaStorage)
	mockProperties := new(MockPropertyService)
	cfg := &config.Config{ImageMaxDimension: 2048, ImageMaxSizeMB: 10}
	p := tasks.NewTaskProcessor(cfg, nil, mockStorage, mockProperties, nil, nil, nil)

	// A small in-bounds JPEG: no resize, attach only
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.NoError(t, jpeg.Encode(&buf, img, nil))

	propertyID := primitive.NewObjectID()
	payloadBytes, _ := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     "uploads/property_image/x/key.jpg",
		ImageType: tasks.ImageTypeProperty,
		EntityID:  propertyID.Hex(),
	})
	task := asynq.NewTask(tasks.TypeImageProcess, payloadBytes)

	mockStorage.On("Download", mock.Anything, "uploads/property_image/x/key.jpg").
		Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)
	mockProperties.On("AddImage", mock.Anything, propertyID, "uploads/property_image/x/key.jpg").Return(nil)

	err := p.HandleImageProcessTask(context.Background(), task)

	assert.NoError(t, err)
	mockStorage.AssertExpectations(t)
	mockProperties.AssertExpectations(t)
	// In-bounds image must not be re-uploaded
	mockStorage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleImageProcessTask_BadEntityID(t *testing.T) {
	cfg := &config.Config{ImageMaxDimension: 2048, ImageMaxSizeMB: 10}
	p := tasks.NewTaskProcessor(cfg, nil, nil, nil, nil, nil, nil)

	payloadBytes, _ := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     "uploads/property_image/x/key.jpg",
		ImageType: tasks.ImageTypeProperty,
		EntityID:  "not-an-object-id",
	})
	task := asynq.NewTask(tasks.TypeImageProcess, payloadBytes)

	err := p.HandleImageProcessTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
