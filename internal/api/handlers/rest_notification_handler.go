package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/middleware"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// RestNotificationHandler handles REST requests for notifications.
type RestNotificationHandler struct {
	notificationService services.INotificationService
}

// NewRestNotificationHandler creates a new RestNotificationHandler.
func NewRestNotificationHandler(notificationService services.INotificationService) *RestNotificationHandler {
	return &RestNotificationHandler{notificationService: notificationService}
}

// List handles GET /v1/notifications
func (h *RestNotificationHandler) List(c *gin.Context) {
	user := c.MustGet(middleware.ContextKeyUser).(*models.User)

	unreadOnly := false
	if unreadStr := c.Query("unread"); unreadStr != "" {
		parsed, err := strconv.ParseBool(unreadStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid unread filter")
			return
		}
		unreadOnly = parsed
	}

	notifications, err := h.notificationService.ListByUser(c.Request.Context(), user.ID, unreadOnly)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	respondSuccess(c, http.StatusOK, "Notifications", notifications)
}

// MarkRead handles PUT /v1/notifications/:id. Only the owner can mark a
// notification read; a foreign ID reports not found rather than forbidden.
func (h *RestNotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid notification ID format")
		return
	}

	user := c.MustGet(middleware.ContextKeyUser).(*models.User)
	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, user.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Notification not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to mark notification read")
		return
	}
	respondSuccess(c, http.StatusOK, "Notification marked read", nil)
}
