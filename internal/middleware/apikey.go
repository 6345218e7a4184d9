package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware authenticates gate scanners by a shared key.
type APIKeyMiddleware struct {
	required bool
	keys     []string
}

func NewAPIKeyMiddleware(required bool, keys []string) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		required: required,
		keys:     keys,
	}
}

func (m *APIKeyMiddleware) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.required {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-API-Key")

		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		validKey := false
		for _, key := range m.keys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
				validKey = true
				break
			}
		}

		if !validKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
