package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hearthside/estate/internal/config"
	"hearthside/estate/internal/email"
	"hearthside/estate/internal/services"
	"hearthside/estate/internal/storage"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Image attachment targets. The image worker routes a processed key to the
// owning document based on this type.
const (
	ImageTypeProperty = "property_image"
	ImageTypeAvatar   = "user_avatar"
	ImageTypeLogo     = "company_logo"
)

// EmailTaskPayload is the wire payload for email delivery tasks.
type EmailTaskPayload struct {
	To         []string               `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// ImageTaskPayload is the wire payload for image normalization tasks.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ImageType string `json:"image_type"`
	EntityID  string `json:"entity_id"`
}

// --- Task Client (Enqueuing tasks) ---

// Client wraps an asynq client and implements services.TaskEnqueuer.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a task client on the same Redis the workers consume.
func NewClient(rdb *redis.Client) *Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return &Client{asynqClient: asynq.NewClient(clientOpt)}
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueEmail queues an email delivery task on the default queue.
func (c *Client) EnqueueEmail(ctx context.Context, to []string, templateID string, data map[string]interface{}) error {
	payload, err := json.Marshal(EmailTaskPayload{To: to, TemplateID: templateID, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailDelivery, payload)
	if _, err := c.asynqClient.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	return nil
}

// EnqueueImageProcess queues an image normalization task on the images queue.
func (c *Client) EnqueueImageProcess(ctx context.Context, s3Key, imageType, entityID string) error {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, ImageType: imageType, EntityID: entityID})
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	task := asynq.NewTask(TypeImageProcess, payload)
	if _, err := c.asynqClient.EnqueueContext(ctx, task, asynq.Queue("images"), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("failed to enqueue image task: %w", err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	mediaStorage         storage.IMediaStorage
	propertyService      services.IPropertyService
	userService          services.IUserService
	companyService       services.ICompanyService
	emailTemplateService services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	mediaStorage storage.IMediaStorage,
	propertyService services.IPropertyService,
	userService services.IUserService,
	companyService services.ICompanyService,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		mediaStorage:         mediaStorage,
		propertyService:      propertyService,
		userService:          userService,
		companyService:       companyService,
		emailTemplateService: emailTemplateService,
	}
}

// SetupServer configures and returns an Asynq server instance.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		log.Println("Registered background task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Could not run Asynq server: %v", err)
		}
	}()

	return srv
}

// --- Task Handlers ---

// HandleEmailDeliveryTask renders a template and delivers the email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.To) == 0 {
		return fmt.Errorf("email task has no recipients: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = "en-US"
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		// Non-retryable if template not found
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	// Simple placeholder replacement (replace {{.key}})
	subjectRendered := tmpl.Subject
	bodyRendered := tmpl.Body
	for key, val := range payload.Data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		valueStr := fmt.Sprintf("%v", val)
		subjectRendered = strings.ReplaceAll(subjectRendered, placeholder, valueStr)
		bodyRendered = strings.ReplaceAll(bodyRendered, placeholder, valueStr)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s", fromAddress)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(payload.To, ", ")))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subjectRendered))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(bodyRendered)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, payload.To, subjectRendered, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed (will retry): %v", err)
		return err
	}

	log.Printf("Email task processed: To=%v, Template=%s", payload.To, payload.TemplateID)
	return nil
}

// HandleImageProcessTask normalizes an uploaded image: enforces the size
// cap, downsizes oversized images, re-encodes to JPEG, and attaches the
// final key to the owning document.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	entityID, err := primitive.ObjectIDFromHex(payload.EntityID)
	if err != nil {
		log.Printf("Invalid EntityID in image task payload: %s", payload.EntityID)
		return fmt.Errorf("invalid entity ID in payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, Type=%s, EntityID=%s", payload.S3Key, payload.ImageType, payload.EntityID)

	body, err := p.mediaStorage.Download(ctx, payload.S3Key)
	if err != nil {
		log.Printf("Error downloading object %s: %v", payload.S3Key, err)
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer body.Close()

	imgData, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read image data for %s: %w", payload.S3Key, err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resizedImg := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
		}
		if int64(buf.Len()) > maxSizeBytes {
			log.Printf("Resized image %s still exceeds max size. Skipping.", payload.S3Key)
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
		if _, err := p.mediaStorage.Upload(ctx, payload.S3Key, bytes.NewReader(buf.Bytes()), "image/jpeg"); err != nil {
			return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
		}
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())
	}

	switch payload.ImageType {
	case ImageTypeProperty:
		err = p.propertyService.AddImage(ctx, entityID, payload.S3Key)
	case ImageTypeAvatar:
		err = p.userService.SetAvatar(ctx, entityID, payload.S3Key)
	case ImageTypeLogo:
		err = p.companyService.SetLogo(ctx, entityID, payload.S3Key)
	default:
		log.Printf("Unknown image type %s for key %s", payload.ImageType, payload.S3Key)
		return fmt.Errorf("unknown image type: %w", asynq.SkipRetry)
	}
	if err != nil {
		log.Printf("Error attaching image key %s to %s %s: %v", payload.S3Key, payload.ImageType, payload.EntityID, err)
		return fmt.Errorf("failed to attach processed image: %w", err)
	}

	log.Printf("Image task processed: Key=%s, Type=%s, EntityID=%s", payload.S3Key, payload.ImageType, payload.EntityID)
	return nil
}
