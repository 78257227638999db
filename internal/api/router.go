package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"staff-status-backend/config"
	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/mw"
	"staff-status-backend/internal/store"
	statussync "staff-status-backend/internal/sync"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, m *manager.Manager, sy *statussync.Synchronizer, cfg config.ServerConfig, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, m, sy, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/users", caching, handler.GetUsers)

		api.GET("/statuses", handler.GetStatuses)
		api.GET("/users/:user_id/status", handler.GetUserStatus)
		api.PUT("/users/:user_id/status", handler.PutUserStatus)
		api.POST("/users/:user_id/status/refresh", handler.RefreshUserStatus)
		api.DELETE("/users/:user_id/slots/:slot_id", handler.DeleteTimeSlot)
		api.GET("/users/:user_id/history", handler.GetStatusHistory)

		api.POST("/sync", handler.PostSync)
		api.GET("/consistency", handler.GetConsistency)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
