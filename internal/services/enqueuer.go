package services

import "context"

// TaskEnqueuer abstracts the background task client so services and handlers
// can enqueue work without depending on the broker package.
type TaskEnqueuer interface {
	EnqueueEmail(ctx context.Context, to []string, templateID string, data map[string]interface{}) error
	EnqueueImageProcess(ctx context.Context, s3Key, imageType, entityID string) error
}
