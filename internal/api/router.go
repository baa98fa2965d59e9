package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"hearthside/estate/internal/api/handlers"
	"hearthside/estate/internal/api/middleware"
	"hearthside/estate/internal/config"
	"hearthside/estate/internal/realtime"
	"hearthside/estate/internal/services"
	"hearthside/estate/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(
	cfg *config.Config,
	db *mongo.Database,
	taskClient services.TaskEnqueuer,
	settingsSvc services.ISettingsService,
	gateway *realtime.Gateway,
	mediaStorage storage.IMediaStorage,
) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db, cfg)
	companyService := services.NewCompanyService(db)
	propertyService := services.NewPropertyService(db)
	notificationService := services.NewNotificationService(db)
	inquiryService := services.NewInquiryService(db, cfg, notificationService, userService, gateway, taskClient)

	r := gin.Default()

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, settingsSvc)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restUserHandler := handlers.NewRestUserHandler(cfg, userService)
	restCompanyHandler := handlers.NewRestCompanyHandler(companyService)
	restPropertyHandler := handlers.NewRestPropertyHandler(propertyService, notificationService, inquiryService)
	restInquiryHandler := handlers.NewRestInquiryHandler(inquiryService, propertyService)
	restNotificationHandler := handlers.NewRestNotificationHandler(notificationService)
	uploadHandler := handlers.NewUploadHandler(mediaStorage, taskClient)

	v1 := r.Group("/v1")
	{
		// Public routes (rate limiting already applied globally)
		v1.POST("/signup", restUserHandler.Signup)
		v1.POST("/login", restUserHandler.Login)

		v1.GET("/companies", restCompanyHandler.List)
		v1.GET("/companies/:id", restCompanyHandler.Get)

		v1.GET("/properties", restPropertyHandler.List)
		v1.GET("/properties/:id", restPropertyHandler.Get)

		v1.GET("/image/*id", uploadHandler.Get)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// The gateway authenticates the connection itself from the token
		// query parameter, so it sits outside AuthMiddleware.
		if gateway != nil {
			v1.GET("/ws", gateway.HandleConnection)
		}

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg, userService))
		{
			authRequired.GET("/me", restUserHandler.Me)
			authRequired.PUT("/me", restUserHandler.UpdateMe)

			authRequired.POST("/inquiries", restInquiryHandler.Create)
			authRequired.GET("/inquiries", restInquiryHandler.List)
			authRequired.GET("/inquiries/:id", restInquiryHandler.Get)

			authRequired.GET("/notifications", restNotificationHandler.List)
			authRequired.PUT("/notifications/:id", restNotificationHandler.MarkRead)

			authRequired.POST("/image/upload", uploadHandler.Upload)
		}

		// Admin routes
		adminRequired := v1.Group("/")
		adminRequired.Use(middleware.AuthMiddleware(cfg, userService), middleware.AdminMiddleware())
		{
			adminRequired.GET("/admin/users", restUserHandler.ListUsers)

			adminRequired.POST("/companies", restCompanyHandler.Create)
			adminRequired.PUT("/companies/:id", restCompanyHandler.Update)
			adminRequired.DELETE("/companies/:id", restCompanyHandler.Delete)

			adminRequired.POST("/properties", restPropertyHandler.Create)
			adminRequired.PUT("/properties/:id", restPropertyHandler.Update)
			adminRequired.DELETE("/properties/:id", restPropertyHandler.Delete)
			adminRequired.POST("/properties/:id/sold", restPropertyHandler.MarkSold)

			adminRequired.POST("/inquiries/:id/review", restInquiryHandler.Review)
			adminRequired.POST("/inquiries/:id/respond", restInquiryHandler.Respond)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine. It runs
// on a separate port so operational endpoints never share the public surface.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			// Poll briefly: the email lands via an async worker
			var emailJSONData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				emailJSONData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJSONData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
