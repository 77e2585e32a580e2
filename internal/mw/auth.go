package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the credential for the cashier and admin surface.
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose API key header does not match the configured
// key. An empty configured key locks the surface rather than opening it.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader(APIKeyHeader) != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
