package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/config"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/mw"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions)

	rateLimitPerSec := cfg.Server.RateLimitPerSec
	if rateLimitPerSec <= 0 {
		rateLimitPerSec = 10
	}
	burst := cfg.Server.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(rate.Limit(rateLimitPerSec), burst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	apiKey := mw.APIKey(cfg.Auth.APIKey)

	// Cashier integration reports a confirmed payment.
	r.POST("/qris", rateLimiter, apiKey, handler.CreateTransaction)

	// Soundboxes poll for work; never cached, never behind the API key.
	r.GET("/next-transaction", rateLimiter, handler.NextTransaction)

	// Admin/operator surface.
	api := r.Group("/api")
	api.Use(rateLimiter, apiKey)
	{
		api.POST("/stores", handler.RegisterStore)
		api.GET("/stores", handler.ListStores)
		api.PATCH("/stores/:store_id/enabled", handler.SetStoreEnabled)
		api.DELETE("/stores/:store_id", handler.DeleteStore)

		api.GET("/transactions", handler.ListTransactions)
		api.DELETE("/transactions", handler.ClearTransactions)

		// Device liveness listing tolerates brief staleness.
		api.GET("/devices", caching, handler.ListDevices)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
