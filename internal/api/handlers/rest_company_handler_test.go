package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/handlers"
	"hearthside/estate/internal/models"
)

func setupCompanyRouter() (*gin.Engine, *MockCompanyService) {
	gin.SetMode(gin.TestMode)
	mockCompanySvc := new(MockCompanyService)
	handler := handlers.NewRestCompanyHandler(mockCompanySvc)

	r := gin.New()
	r.POST("/v1/companies", handler.Create)
	r.GET("/v1/companies", handler.List)
	r.GET("/v1/companies/:id", handler.Get)
	r.PUT("/v1/companies/:id", handler.Update)
	r.DELETE("/v1/companies/:id", handler.Delete)
	return r, mockCompanySvc
}

func TestRestCompanyHandler_Create_Success(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	mockCompanySvc.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Company) bool {
		return c.Name == "Hearthside Realty" && c.Email == "hello@hearthside.example"
	})).Return(&models.Company{ID: primitive.NewObjectID(), Name: "Hearthside Realty"}, nil)

	payload := `{"name":"Hearthside Realty","email":"hello@hearthside.example"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/companies", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "Company created", body["message"])
	mockCompanySvc.AssertExpectations(t)
}

func TestRestCompanyHandler_Create_MissingName(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	payload := `{"email":"hello@hearthside.example"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/companies", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockCompanySvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRestCompanyHandler_Get_NotFound(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	companyID := primitive.NewObjectID()
	mockCompanySvc.On("FindByID", mock.Anything, companyID).Return(nil, mongo.ErrNoDocuments)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/companies/"+companyID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestCompanyHandler_List(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	mockCompanySvc.On("List", mock.Anything).Return([]models.Company{
		{ID: primitive.NewObjectID(), Name: "A"},
		{ID: primitive.NewObjectID(), Name: "B"},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/companies", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Len(t, body["data"], 2)
}

func TestRestCompanyHandler_Update_Success(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	companyID := primitive.NewObjectID()
	mockCompanySvc.On("Update", mock.Anything, companyID, mock.MatchedBy(func(c *models.Company) bool {
		return c.Name == "Renamed Realty"
	})).Return(&models.Company{ID: companyID, Name: "Renamed Realty"}, nil)

	payload := `{"name":"Renamed Realty"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/v1/companies/"+companyID.Hex(), bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockCompanySvc.AssertExpectations(t)
}

func TestRestCompanyHandler_Delete_Success(t *testing.T) {
	r, mockCompanySvc := setupCompanyRouter()

	companyID := primitive.NewObjectID()
	mockCompanySvc.On("Delete", mock.Anything, companyID).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/companies/"+companyID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockCompanySvc.AssertExpectations(t)
}
