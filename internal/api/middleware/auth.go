package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/auth"
	"hearthside/estate/internal/config"
	"hearthside/estate/internal/models"
	"hearthside/estate/internal/services"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyIsAdmin holds the key for the effective admin flag in Gin context.
	ContextKeyIsAdmin = "isAdmin"
	// ContextKeyUser holds the key for the resolved user document in Gin context.
	ContextKeyUser = "user"
)

// ErrUserNotFound is returned by VerifyIdentity when the token is valid but
// references no live user.
var ErrUserNotFound = errors.New("user referenced by token not found")

// VerifyIdentity resolves a bearer token into the stored user it references.
// The returned flag is the effective admin status: the token claim, the
// stored flag, or a stored admin code matching the configured one. The HTTP
// middleware and the websocket handshake share this path so a token means
// the same thing on both surfaces.
func VerifyIdentity(ctx context.Context, tokenString string, cfg *config.Config, userService services.IUserService) (*models.User, bool, error) {
	claims, err := auth.ValidateJWT(tokenString, cfg.JwtSecret)
	if err != nil {
		return nil, false, fmt.Errorf("invalid or expired token: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("invalid user ID in token: %w", err)
	}

	user, err := userService.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("error looking up token user: %w", err)
	}

	isAdmin := claims.IsAdmin || userService.IsEffectiveAdmin(user)
	return user, isAdmin, nil
}

// AuthMiddleware creates a Gin middleware for JWT authentication. Every
// authenticated request resolves the user from the DB so suspended or
// deleted accounts lose access immediately rather than at token expiry.
func AuthMiddleware(cfg *config.Config, userService services.IUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Authorization header format must be Bearer {token}"})
			return
		}

		user, isAdmin, err := VerifyIdentity(c.Request.Context(), parts[1], cfg, userService)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": "error", "message": "User not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		c.Set(ContextKeyUserID, user.ID.Hex())
		c.Set(ContextKeyIsAdmin, isAdmin)
		c.Set(ContextKeyUser, user)

		c.Next()
	}
}

// AdminMiddleware creates a Gin middleware to check for admin privileges.
// Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(ContextKeyIsAdmin)
		if !exists || !isAdmin.(bool) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}
