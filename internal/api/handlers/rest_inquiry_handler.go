package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/middleware"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// RestInquiryHandler handles REST requests for inquiries.
type RestInquiryHandler struct {
	inquiryService  services.IInquiryService
	propertyService services.IPropertyService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService, propertyService services.IPropertyService) *RestInquiryHandler {
	return &RestInquiryHandler{
		inquiryService:  inquiryService,
		propertyService: propertyService,
	}
}

type createInquiryRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// Create handles POST /v1/inquiries
func (h *RestInquiryHandler) Create(c *gin.Context) {
	var req createInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid inquiry payload: "+err.Error())
		return
	}

	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	// Reject inquiries against unknown properties up front.
	if _, err := h.propertyService.FindByID(c.Request.Context(), propertyID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Property not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create inquiry")
		return
	}

	user := c.MustGet(middleware.ContextKeyUser).(*models.User)
	inquiry, err := h.inquiryService.Create(c.Request.Context(), user.ID, propertyID, req.Message)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create inquiry")
		return
	}
	respondSuccess(c, http.StatusCreated, "Inquiry submitted", inquiry)
}

// List handles GET /v1/inquiries. Admins see everything (optionally filtered
// by status); everyone else sees only their own.
func (h *RestInquiryHandler) List(c *gin.Context) {
	user := c.MustGet(middleware.ContextKeyUser).(*models.User)

	var inquiries []models.Inquiry
	var err error
	if c.GetBool(middleware.ContextKeyIsAdmin) {
		var statusFilter *models.InquiryStatus
		if statusStr := c.Query("status"); statusStr != "" {
			status := models.InquiryStatus(statusStr)
			switch status {
			case models.InquiryStatusSubmitted, models.InquiryStatusUnderReview, models.InquiryStatusAnswered:
				statusFilter = &status
			default:
				respondError(c, http.StatusBadRequest, "Unknown inquiry status filter")
				return
			}
		}
		inquiries, err = h.inquiryService.ListAll(c.Request.Context(), statusFilter)
	} else {
		inquiries, err = h.inquiryService.ListByUser(c.Request.Context(), user.ID)
	}
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list inquiries")
		return
	}
	respondSuccess(c, http.StatusOK, "Inquiries", inquiries)
}

// Get handles GET /v1/inquiries/:id (owner or admin).
func (h *RestInquiryHandler) Get(c *gin.Context) {
	inquiryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid inquiry ID format")
		return
	}

	inquiry, err := h.inquiryService.FindByID(c.Request.Context(), inquiryID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Inquiry not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve inquiry")
		return
	}

	user := c.MustGet(middleware.ContextKeyUser).(*models.User)
	if inquiry.UserID != user.ID && !c.GetBool(middleware.ContextKeyIsAdmin) {
		respondError(c, http.StatusForbidden, "Not your inquiry")
		return
	}
	respondSuccess(c, http.StatusOK, "Inquiry", inquiry)
}

// Review handles POST /v1/inquiries/:id/review
func (h *RestInquiryHandler) Review(c *gin.Context) {
	inquiryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid inquiry ID format")
		return
	}

	inquiry, err := h.inquiryService.Review(c.Request.Context(), inquiryID)
	if err != nil {
		h.respondTransitionError(c, err, "review")
		return
	}
	respondSuccess(c, http.StatusOK, "Inquiry under review", inquiry)
}

type respondRequest struct {
	Response string `json:"response" binding:"required"`
}

// Respond handles POST /v1/inquiries/:id/respond
func (h *RestInquiryHandler) Respond(c *gin.Context) {
	inquiryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid inquiry ID format")
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid response payload: "+err.Error())
		return
	}

	inquiry, err := h.inquiryService.Respond(c.Request.Context(), inquiryID, req.Response)
	if err != nil {
		h.respondTransitionError(c, err, "answer")
		return
	}
	respondSuccess(c, http.StatusOK, "Inquiry answered", inquiry)
}

func (h *RestInquiryHandler) respondTransitionError(c *gin.Context, err error, verb string) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respondError(c, http.StatusNotFound, "Inquiry not found")
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "Inquiry cannot be "+verb+"ed in its current status")
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to "+verb+" inquiry")
	}
}
