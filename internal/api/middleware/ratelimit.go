package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"hearthside/estate/internal/config"
	"hearthside/estate/internal/services"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints. Anonymous
// clients are held to the soft limit; authenticated clients only hit the
// hard limit. Per-endpoint overrides come from the settings service.
type RateLimiterMiddleware struct {
	clients  map[string]*clientLimiter
	mu       sync.Mutex
	cfg      *config.Config
	settings services.ISettingsService
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware.
func NewRateLimiterMiddleware(cfg *config.Config, settings services.ISettingsService) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:  make(map[string]*clientLimiter),
		cfg:      cfg,
		settings: settings,
	}
	// Start a background goroutine to clean up old client entries
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier keys limiters by client IP.
func getClientIdentifier(c *gin.Context) string {
	return c.ClientIP()
}

// getClientLimiter retrieves or creates the rate limiters for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, softRate, softBurst, hardRate, hardBurst int) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(softRate), softBurst),
			hardLimiter: rate.NewLimiter(rate.Limit(hardRate), hardBurst),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// cleanupClients periodically removes old client entries from the map.
func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > 30*time.Minute {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			log.Printf("Rate limiter cleanup removed %d old client entries.", count)
		}
	}
}

// limitsFor resolves the effective limits for an endpoint, preferring
// per-path settings overrides over the configured defaults.
func (rm *RateLimiterMiddleware) limitsFor(c *gin.Context, path string) (softRate, softBurst, hardRate, hardBurst int) {
	softRate = rm.cfg.RateLimitSoftRefillRate
	softBurst = rm.cfg.RateLimitSoftBucketSize
	hardRate = rm.cfg.RateLimitHardRefillRate
	hardBurst = rm.cfg.RateLimitHardBucketSize

	if rm.settings == nil {
		return
	}
	ctx := c.Request.Context()
	softRate = rm.settings.GetInt(ctx, fmt.Sprintf("ratelimit:%s:soft_rate", path), softRate)
	softBurst = rm.settings.GetInt(ctx, fmt.Sprintf("ratelimit:%s:soft_burst", path), softBurst)
	hardRate = rm.settings.GetInt(ctx, fmt.Sprintf("ratelimit:%s:hard_rate", path), hardRate)
	hardBurst = rm.settings.GetInt(ctx, fmt.Sprintf("ratelimit:%s:hard_burst", path), hardBurst)
	return
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		path := c.FullPath()

		softRate, softBurst, hardRate, hardBurst := rm.limitsFor(c, path)
		limiter := rm.getClientLimiter(clientKey, softRate, softBurst, hardRate, hardBurst)

		if !limiter.hardLimiter.Allow() {
			log.Printf("Hard rate limit exceeded for client %s on %s", clientKey, path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": "error", "message": "Rate limit exceeded"})
			return
		}

		// Authenticated requests skip the soft limit; the hard limit still applies.
		authenticated := c.GetHeader("Authorization") != ""
		if !authenticated && !limiter.softLimiter.Allow() {
			log.Printf("Soft rate limit exceeded for anonymous client %s on %s", clientKey, path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": "error", "message": "Rate limit exceeded, slow down"})
			return
		}

		c.Next()
	}
}
