package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hearthside/estate/internal/services"
	"hearthside/estate/internal/storage"
	"hearthside/estate/internal/tasks"
)

// UploadHandler handles media upload and retrieval.
type UploadHandler struct {
	mediaStorage storage.IMediaStorage
	enqueuer     services.TaskEnqueuer
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(mediaStorage storage.IMediaStorage, enqueuer services.TaskEnqueuer) *UploadHandler {
	return &UploadHandler{
		mediaStorage: mediaStorage,
		enqueuer:     enqueuer,
	}
}

var allowedImageTypes = map[string]bool{
	tasks.ImageTypeProperty: true,
	tasks.ImageTypeAvatar:   true,
	tasks.ImageTypeLogo:     true,
}

// Upload handles POST /v1/image/upload. The image is streamed to S3 as-is
// and normalization happens asynchronously on the images queue, so large
// uploads do not block the request.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Missing image file")
		return
	}

	imageType := c.PostForm("type")
	if !allowedImageTypes[imageType] {
		respondError(c, http.StatusBadRequest, "Unknown image type")
		return
	}

	entityIDHex := c.PostForm("entityId")
	if _, err := primitive.ObjectIDFromHex(entityIDHex); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid entity ID format")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.BuildKey(imageType, entityIDHex, fileHeader.Filename)
	url, err := h.mediaStorage.Upload(c.Request.Context(), key, file, contentType)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to store image")
		return
	}

	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueImageProcess(c.Request.Context(), key, imageType, entityIDHex); err != nil {
			// The object is stored; normalization can be re-run
			log.Printf("Error enqueueing image processing for key %s: %v", key, err)
		}
	}

	respondSuccess(c, http.StatusCreated, "Image uploaded", gin.H{
		"url": url,
		"id":  key,
	})
}

// Get handles GET /v1/image/*id by redirecting to a short-lived presigned
// URL. Serving bytes through the API would double the bandwidth cost.
func (h *UploadHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("id"), "/")
	if key == "" {
		respondError(c, http.StatusBadRequest, "Missing image ID")
		return
	}

	url, err := h.mediaStorage.GeneratePresignedGetURL(c.Request.Context(), key, 15*time.Minute)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to resolve image")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}
