package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hearthside/estate/internal/config"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/realtime"
)

// ErrInvalidTransition is returned for a status change the inquiry lifecycle
// does not allow (reverse or repeated transitions).
var ErrInvalidTransition = errors.New("invalid inquiry status transition")

// RealtimeNotifier is the realtime fan-out surface the inquiry service needs.
// Satisfied by *realtime.Gateway.
type RealtimeNotifier interface {
	NotifyAdmins(ctx context.Context, ev realtime.InquiryEvent) error
	NotifyUser(ctx context.Context, userID string, ev realtime.InquiryEvent) error
}

// IInquiryService defines the interface for inquiry operations.
type IInquiryService interface {
	Create(ctx context.Context, userID, propertyID primitive.ObjectID, message string) (*models.Inquiry, error)
	// CreateFromClient satisfies realtime.InquirySink for socket submissions.
	CreateFromClient(ctx context.Context, userID, propertyID primitive.ObjectID, message string) error
	FindByID(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Inquiry, error)
	ListAll(ctx context.Context, status *models.InquiryStatus) ([]models.Inquiry, error)
	Review(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error)
	Respond(ctx context.Context, inquiryID primitive.ObjectID, response string) (*models.Inquiry, error)
	// NotifySold emails every distinct user who inquired about the property,
	// honoring their property-sold notification preference.
	NotifySold(ctx context.Context, propertyID primitive.ObjectID) error
}

const inquiriesCollection = "inquiries"

// inquiryService implements IInquiryService. It owns the status state
// machine and the event fan-out: persisted notifications, realtime
// broadcast, and email tasks all start here so socket-submitted and
// REST-submitted inquiries behave identically.
type inquiryService struct {
	db              *mongo.Database
	cfg             *config.Config
	notificationSvc INotificationService
	userSvc         IUserService
	notifier        RealtimeNotifier // nil in worker-only modes
	enqueuer        TaskEnqueuer     // nil when no broker is wired (tests)
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(
	db *mongo.Database,
	cfg *config.Config,
	notificationSvc INotificationService,
	userSvc IUserService,
	notifier RealtimeNotifier,
	enqueuer TaskEnqueuer,
) IInquiryService {
	return &inquiryService{
		db:              db,
		cfg:             cfg,
		notificationSvc: notificationSvc,
		userSvc:         userSvc,
		notifier:        notifier,
		enqueuer:        enqueuer,
	}
}

// Create persists a new inquiry with status submitted, writes one
// notification per admin, broadcasts new_inquiry to the admin group and
// enqueues an admin email. Fan-out failures are logged, not returned: the
// inquiry itself is already durable.
func (s *inquiryService) Create(ctx context.Context, userID, propertyID primitive.ObjectID, message string) (*models.Inquiry, error) {
	if message == "" {
		return nil, fmt.Errorf("inquiry message is required")
	}

	now := time.Now().UTC()
	inquiry := &models.Inquiry{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		PropertyID: propertyID,
		Message:    message,
		Status:     models.InquiryStatusSubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.db.Collection(inquiriesCollection).InsertOne(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("error inserting inquiry for user %s: %w", userID.Hex(), err)
	}

	s.fanOutCreated(ctx, inquiry)
	return inquiry, nil
}

// CreateFromClient adapts Create to the realtime.InquirySink interface used
// for socket-submitted inquiries.
func (s *inquiryService) CreateFromClient(ctx context.Context, userID, propertyID primitive.ObjectID, message string) error {
	_, err := s.Create(ctx, userID, propertyID, message)
	return err
}

func (s *inquiryService) fanOutCreated(ctx context.Context, inquiry *models.Inquiry) {
	notifMessage := fmt.Sprintf("New inquiry received for property %s", inquiry.PropertyID.Hex())

	adminIDs, err := s.userSvc.GetAdminIDs(ctx)
	if err != nil {
		log.Printf("Error resolving admin recipients for inquiry %s: %v", inquiry.ID.Hex(), err)
	} else if err := s.notificationSvc.CreateForUsers(ctx, adminIDs, inquiry.ID, notifMessage); err != nil {
		log.Printf("Error creating admin notifications for inquiry %s: %v", inquiry.ID.Hex(), err)
	}

	if s.notifier != nil {
		ev := realtime.InquiryEvent{
			InquiryID:  inquiry.ID.Hex(),
			PropertyID: inquiry.PropertyID.Hex(),
			UserID:     inquiry.UserID.Hex(),
			Message:    inquiry.Message,
		}
		if err := s.notifier.NotifyAdmins(ctx, ev); err != nil {
			log.Printf("Error broadcasting inquiry %s to admin group: %v", inquiry.ID.Hex(), err)
		}
	}

	if s.enqueuer != nil {
		emails, err := s.userSvc.GetAdminEmails(ctx)
		if err != nil {
			log.Printf("Error resolving admin emails for inquiry %s: %v", inquiry.ID.Hex(), err)
		} else if len(emails) > 0 {
			data := map[string]interface{}{
				"property_id": inquiry.PropertyID.Hex(),
				"message":     inquiry.Message,
			}
			if err := s.enqueuer.EnqueueEmail(ctx, emails, models.TemplateInquiryReceived, data); err != nil {
				log.Printf("Error enqueueing admin email for inquiry %s: %v", inquiry.ID.Hex(), err)
			}
		}
	}
}

func (s *inquiryService) FindByID(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": inquiryID}).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding inquiry %s: %w", inquiryID.Hex(), err)
	}
	return &inquiry, nil
}

func (s *inquiryService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Inquiry, error) {
	return s.list(ctx, bson.M{"user_id": userID})
}

func (s *inquiryService) ListAll(ctx context.Context, status *models.InquiryStatus) ([]models.Inquiry, error) {
	filter := bson.M{}
	if status != nil {
		filter["status"] = *status
	}
	return s.list(ctx, filter)
}

func (s *inquiryService) list(ctx context.Context, filter bson.M) ([]models.Inquiry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	var inquiries []models.Inquiry
	if err = cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("failed to decode inquiries: %w", err)
	}
	return inquiries, nil
}

// Review moves an inquiry to under_review and notifies the originating user.
func (s *inquiryService) Review(ctx context.Context, inquiryID primitive.ObjectID) (*models.Inquiry, error) {
	inquiry, err := s.transition(ctx, inquiryID, models.InquiryStatusUnderReview, nil)
	if err != nil {
		return nil, err
	}
	s.fanOutTransition(ctx, inquiry, "Your inquiry is under review", "")
	return inquiry, nil
}

// Respond answers an inquiry and notifies the originating user.
func (s *inquiryService) Respond(ctx context.Context, inquiryID primitive.ObjectID, response string) (*models.Inquiry, error) {
	if response == "" {
		return nil, fmt.Errorf("response text is required")
	}
	inquiry, err := s.transition(ctx, inquiryID, models.InquiryStatusAnswered, &response)
	if err != nil {
		return nil, err
	}
	s.fanOutTransition(ctx, inquiry, "Your inquiry has been answered", response)
	return inquiry, nil
}

// transition applies a guarded status change. The current status is part of
// the update filter, so a concurrent conflicting transition loses cleanly
// instead of overwriting.
func (s *inquiryService) transition(ctx context.Context, inquiryID primitive.ObjectID, to models.InquiryStatus, response *string) (*models.Inquiry, error) {
	inquiry, err := s.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	if !inquiry.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inquiry.Status, to)
	}

	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	if response != nil {
		set["response"] = *response
	}

	filter := bson.M{"_id": inquiryID, "status": inquiry.Status}
	result, err := s.db.Collection(inquiriesCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error transitioning inquiry %s to %s: %w", inquiryID.Hex(), to, err)
	}
	if result.MatchedCount == 0 {
		// Lost a race with another transition.
		return nil, fmt.Errorf("%w: inquiry %s changed concurrently", ErrInvalidTransition, inquiryID.Hex())
	}

	return s.FindByID(ctx, inquiryID)
}

// NotifySold runs after a property is marked sold. The notification flags
// themselves are flipped by the notification service; this only handles the
// email side.
func (s *inquiryService) NotifySold(ctx context.Context, propertyID primitive.ObjectID) error {
	if s.enqueuer == nil {
		return nil
	}

	userIDs, err := s.db.Collection(inquiriesCollection).Distinct(ctx, "user_id", bson.M{"property_id": propertyID})
	if err != nil {
		return fmt.Errorf("failed to resolve inquirers for property %s: %w", propertyID.Hex(), err)
	}

	for _, raw := range userIDs {
		userID, ok := raw.(primitive.ObjectID)
		if !ok {
			continue
		}
		user, err := s.userSvc.FindByID(ctx, userID)
		if err != nil {
			log.Printf("Error resolving inquirer %s for sold property %s: %v", userID.Hex(), propertyID.Hex(), err)
			continue
		}
		if user.NotificationPreferences != nil && !user.NotificationPreferences.PropertySold {
			continue
		}
		data := map[string]interface{}{"name": user.Name}
		if err := s.enqueuer.EnqueueEmail(ctx, []string{user.Email}, models.TemplatePropertySold, data); err != nil {
			log.Printf("Error enqueueing sold email for user %s: %v", userID.Hex(), err)
		}
	}
	return nil
}

func (s *inquiryService) fanOutTransition(ctx context.Context, inquiry *models.Inquiry, notifMessage, response string) {
	if _, err := s.notificationSvc.Create(ctx, inquiry.UserID, inquiry.ID, notifMessage); err != nil {
		log.Printf("Error creating notification for inquiry %s: %v", inquiry.ID.Hex(), err)
	}

	if s.notifier != nil {
		ev := realtime.InquiryEvent{
			InquiryID:  inquiry.ID.Hex(),
			PropertyID: inquiry.PropertyID.Hex(),
			UserID:     inquiry.UserID.Hex(),
			Message:    notifMessage,
		}
		if err := s.notifier.NotifyUser(ctx, inquiry.UserID.Hex(), ev); err != nil {
			log.Printf("Error broadcasting inquiry %s update to user: %v", inquiry.ID.Hex(), err)
		}
	}

	if s.enqueuer != nil && inquiry.Status == models.InquiryStatusAnswered {
		user, err := s.userSvc.FindByID(ctx, inquiry.UserID)
		if err != nil {
			log.Printf("Error resolving user for inquiry %s email: %v", inquiry.ID.Hex(), err)
			return
		}
		if user.NotificationPreferences != nil && !user.NotificationPreferences.InquiryAnswered {
			return
		}
		data := map[string]interface{}{
			"name":     user.Name,
			"response": response,
		}
		if err := s.enqueuer.EnqueueEmail(ctx, []string{user.Email}, models.TemplateInquiryAnswered, data); err != nil {
			log.Printf("Error enqueueing answer email for inquiry %s: %v", inquiry.ID.Hex(), err)
		}
	}
}
