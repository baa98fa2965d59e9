package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// RestCompanyHandler handles REST requests for companies.
type RestCompanyHandler struct {
	companyService services.ICompanyService
}

// NewRestCompanyHandler creates a new RestCompanyHandler.
func NewRestCompanyHandler(companyService services.ICompanyService) *RestCompanyHandler {
	return &RestCompanyHandler{companyService: companyService}
}

type companyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
}

// Create handles POST /v1/companies
func (h *RestCompanyHandler) Create(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company payload: "+err.Error())
		return
	}

	company := &models.Company{
		Name:        req.Name,
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
	}
	created, err := h.companyService.Create(c.Request.Context(), company)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create company")
		return
	}
	respondSuccess(c, http.StatusCreated, "Company created", created)
}

// List handles GET /v1/companies
func (h *RestCompanyHandler) List(c *gin.Context) {
	companies, err := h.companyService.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	respondSuccess(c, http.StatusOK, "Companies", companies)
}

// Get handles GET /v1/companies/:id
func (h *RestCompanyHandler) Get(c *gin.Context) {
	companyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company ID format")
		return
	}

	company, err := h.companyService.FindByID(c.Request.Context(), companyID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Company not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve company")
		return
	}
	respondSuccess(c, http.StatusOK, "Company", company)
}

// Update handles PUT /v1/companies/:id
func (h *RestCompanyHandler) Update(c *gin.Context) {
	companyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company ID format")
		return
	}

	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company payload: "+err.Error())
		return
	}

	update := &models.Company{
		Name:        req.Name,
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
	}
	updated, err := h.companyService.Update(c.Request.Context(), companyID, update)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Company not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to update company")
		return
	}
	respondSuccess(c, http.StatusOK, "Company updated", updated)
}

// Delete handles DELETE /v1/companies/:id
func (h *RestCompanyHandler) Delete(c *gin.Context) {
	companyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid company ID format")
		return
	}

	if err := h.companyService.Delete(c.Request.Context(), companyID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Company not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to delete company")
		return
	}
	respondSuccess(c, http.StatusOK, "Company deleted", nil)
}
