package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls which browser origins may call the search API.
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// IsOriginAllowed reports whether the given origin may call the API.
// An empty allow list admits every origin.
func IsOriginAllowed(origin string, config CORSConfig) bool {
	if config.AllowAllOrigins || len(config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// CORS returns a middleware that answers cross-origin requests from the
// search frontend, including preflight.
func CORS(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !IsOriginAllowed(origin, config) {
			// Leave the headers unset; the browser blocks the response.
			c.Next()
			return
		}

		header := c.Writer.Header()
		if config.AllowAllOrigins {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
