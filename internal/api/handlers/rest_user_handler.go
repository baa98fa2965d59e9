package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/middleware"
	"hearthside/estate/internal/auth"
	"hearthside/estate/internal/config"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

// RestUserHandler handles REST requests for accounts and sessions.
type RestUserHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(cfg *config.Config, userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{
		cfg:         cfg,
		userService: userService,
	}
}

type signupRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	AdminCode string `json:"adminCode"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// authPayload is the data section of signup/login responses.
type authPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /v1/signup
func (h *RestUserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid signup payload: "+err.Error())
		return
	}

	if matched, err := regexp.MatchString(h.cfg.PasswordRegexp, req.Password); err != nil || !matched {
		respondError(c, http.StatusBadRequest, "Password does not meet requirements")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Name, req.Email, req.Password, req.AdminCode)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			respondError(c, http.StatusConflict, "Email already in use")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	isAdmin := h.userService.IsEffectiveAdmin(user)
	token, err := auth.GenerateJWT(user.ID, isAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondSuccess(c, http.StatusCreated, "Account created", authPayload{Token: token, User: user})
}

// Login handles POST /v1/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid login payload: "+err.Error())
		return
	}

	user, err := h.userService.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	isAdmin := h.userService.IsEffectiveAdmin(user)
	token, err := auth.GenerateJWT(user.ID, isAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondSuccess(c, http.StatusOK, "Logged in", authPayload{Token: token, User: user})
}

// Me handles GET /v1/me
func (h *RestUserHandler) Me(c *gin.Context) {
	user := c.MustGet(middleware.ContextKeyUser).(*models.User)
	respondSuccess(c, http.StatusOK, "Profile", gin.H{
		"user":    user,
		"isAdmin": c.GetBool(middleware.ContextKeyIsAdmin),
	})
}

type updateProfileRequest struct {
	Name        string                          `json:"name"`
	Phone       string                          `json:"phone"`
	Preferences *models.NotificationPreferences `json:"notification_preferences"`
}

// UpdateMe handles PUT /v1/me
func (h *RestUserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid profile payload: "+err.Error())
		return
	}

	user := c.MustGet(middleware.ContextKeyUser).(*models.User)
	if err := h.userService.UpdateProfile(c.Request.Context(), user.ID, req.Name, req.Phone, req.Preferences); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	updated, err := h.userService.FindByID(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to load updated profile")
		return
	}
	respondSuccess(c, http.StatusOK, "Profile updated", updated)
}

// ListUsers handles GET /v1/admin/users
func (h *RestUserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondSuccess(c, http.StatusOK, "Users", users)
}
