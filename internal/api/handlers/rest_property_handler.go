package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// RestPropertyHandler handles REST requests for properties.
type RestPropertyHandler struct {
	propertyService     services.IPropertyService
	notificationService services.INotificationService
	inquiryService      services.IInquiryService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(
	propertyService services.IPropertyService,
	notificationService services.INotificationService,
	inquiryService services.IInquiryService,
) *RestPropertyHandler {
	return &RestPropertyHandler{
		propertyService:     propertyService,
		notificationService: notificationService,
		inquiryService:      inquiryService,
	}
}

type propertyRequest struct {
	CompanyID string         `json:"companyId" binding:"required"`
	Title     string         `json:"title" binding:"required"`
	Body      string         `json:"body"`
	Address   models.Address `json:"address"`
	Price     *models.Price  `json:"price"`
	Bedrooms  int            `json:"bedrooms"`
	Bathrooms int            `json:"bathrooms"`
}

// Create handles POST /v1/properties
func (h *RestPropertyHandler) Create(c *gin.Context) {
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property payload: "+err.Error())
		return
	}

	companyID, err := primitive.ObjectIDFromHex(req.CompanyID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company ID format")
		return
	}

	property := &models.Property{
		CompanyID: companyID,
		Title:     req.Title,
		Body:      req.Body,
		Address:   req.Address,
		Price:     req.Price,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
	}
	created, err := h.propertyService.Create(c.Request.Context(), property)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create property")
		return
	}
	respondSuccess(c, http.StatusCreated, "Property created", created)
}

// List handles GET /v1/properties
func (h *RestPropertyHandler) List(c *gin.Context) {
	var filter services.PropertyFilter

	if companyHex := c.Query("company"); companyHex != "" {
		companyID, err := primitive.ObjectIDFromHex(companyHex)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid company filter")
			return
		}
		filter.CompanyID = &companyID
	}
	if soldStr := c.Query("sold"); soldStr != "" {
		sold, err := strconv.ParseBool(soldStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid sold filter")
			return
		}
		filter.Sold = &sold
	}
	if minStr := c.Query("minPrice"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			filter.MinPrice = &min
		}
	}
	if maxStr := c.Query("maxPrice"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			filter.MaxPrice = &max
		}
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))

	properties, err := h.propertyService.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list properties")
		return
	}
	respondSuccess(c, http.StatusOK, "Properties", properties)
}

// Get handles GET /v1/properties/:id
func (h *RestPropertyHandler) Get(c *gin.Context) {
	propertyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	property, err := h.propertyService.FindByID(c.Request.Context(), propertyID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Property not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve property")
		return
	}
	respondSuccess(c, http.StatusOK, "Property", property)
}

// Update handles PUT /v1/properties/:id
func (h *RestPropertyHandler) Update(c *gin.Context) {
	propertyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property payload: "+err.Error())
		return
	}

	update := &models.Property{
		Title:     req.Title,
		Body:      req.Body,
		Address:   req.Address,
		Price:     req.Price,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
	}
	if req.CompanyID != "" {
		companyID, err := primitive.ObjectIDFromHex(req.CompanyID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid company ID format")
			return
		}
		update.CompanyID = companyID
	}

	updated, err := h.propertyService.Update(c.Request.Context(), propertyID, update)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Property not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to update property")
		return
	}
	respondSuccess(c, http.StatusOK, "Property updated", updated)
}

// Delete handles DELETE /v1/properties/:id
func (h *RestPropertyHandler) Delete(c *gin.Context) {
	propertyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	if err := h.propertyService.Delete(c.Request.Context(), propertyID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Property not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to delete property")
		return
	}
	respondSuccess(c, http.StatusOK, "Property deleted", nil)
}

// MarkSold handles POST /v1/properties/:id/sold. After the property is
// flagged, every notification tied to an inquiry about it gets
// property_sold=true in one batch, and inquirers are emailed.
func (h *RestPropertyHandler) MarkSold(c *gin.Context) {
	propertyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	property, err := h.propertyService.MarkSold(c.Request.Context(), propertyID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Property not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to mark property sold")
		return
	}

	modified, err := h.notificationService.MarkPropertySold(c.Request.Context(), propertyID)
	if err != nil {
		// Property is already sold; report the partial failure instead of 500
		log.Printf("Error flipping sold notifications for property %s: %v", propertyID.Hex(), err)
	}
	if err := h.inquiryService.NotifySold(c.Request.Context(), propertyID); err != nil {
		log.Printf("Error emailing inquirers for sold property %s: %v", propertyID.Hex(), err)
	}

	respondSuccess(c, http.StatusOK, "Property marked sold", gin.H{
		"property":             property,
		"notificationsUpdated": modified,
	})
}
