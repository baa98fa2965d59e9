package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/middleware"
	"hearthside/estate/internal/auth"
	"hearthside/estate/internal/config"
	"hearthside/estate/internal/models"
)

const testJwtSecret = "middleware-test-secret"

func setupAuthEngine(cfg *config.Config, userSvc *MockUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", middleware.AuthMiddleware(cfg, userSvc), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/admin", middleware.AuthMiddleware(cfg, userSvc), middleware.AdminMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	router := setupAuthEngine(cfg, new(MockUserService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_BadHeaderFormat(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	router := setupAuthEngine(cfg, new(MockUserService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	router := setupAuthEngine(cfg, new(MockUserService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_UserNotFound(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	userID := primitive.NewObjectID()
	token, err := auth.GenerateJWT(userID, false, testJwtSecret, time.Hour)
	assert.NoError(t, err)

	mockUserSvc := new(MockUserService)
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(nil, mongo.ErrNoDocuments)
	router := setupAuthEngine(cfg, mockUserSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	userID := primitive.NewObjectID()
	user := &models.User{ID: userID, Email: "u@example.com"}
	token, err := auth.GenerateJWT(userID, false, testJwtSecret, time.Hour)
	assert.NoError(t, err)

	mockUserSvc := new(MockUserService)
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(user, nil)
	mockUserSvc.On("IsEffectiveAdmin", user).Return(false)
	router := setupAuthEngine(cfg, mockUserSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestAdminMiddleware_NonAdminForbidden(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	userID := primitive.NewObjectID()
	user := &models.User{ID: userID, Email: "u@example.com"}
	token, err := auth.GenerateJWT(userID, false, testJwtSecret, time.Hour)
	assert.NoError(t, err)

	mockUserSvc := new(MockUserService)
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(user, nil)
	mockUserSvc.On("IsEffectiveAdmin", user).Return(false)
	router := setupAuthEngine(cfg, mockUserSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// A plain user whose stored admin code matches the configured one is treated
// as an admin without any claim in the token.
func TestAdminMiddleware_AdminCodeGrantsAccess(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret, AdminCode: "s3cret"}
	userID := primitive.NewObjectID()
	user := &models.User{ID: userID, Email: "a@example.com", AdminCode: "s3cret"}
	token, err := auth.GenerateJWT(userID, false, testJwtSecret, time.Hour)
	assert.NoError(t, err)

	mockUserSvc := new(MockUserService)
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(user, nil)
	mockUserSvc.On("IsEffectiveAdmin", user).Return(true)
	router := setupAuthEngine(cfg, mockUserSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	mockUserSvc.AssertExpectations(t)
}

// An admin claim in the token is honored even when the DB lookup alone would
// not grant admin.
func TestAdminMiddleware_TokenClaimGrantsAccess(t *testing.T) {
	cfg := &config.Config{JwtSecret: testJwtSecret}
	userID := primitive.NewObjectID()
	user := &models.User{ID: userID, Email: "a@example.com"}
	token, err := auth.GenerateJWT(userID, true, testJwtSecret, time.Hour)
	assert.NoError(t, err)

	mockUserSvc := new(MockUserService)
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(user, nil)
	router := setupAuthEngine(cfg, mockUserSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
