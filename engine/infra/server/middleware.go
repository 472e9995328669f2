package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentabot/rentabot/pkg/logger"
)

// API path prefixes. The legacy prefix is served equivalently to the new
// one until clients migrate.
const (
	APIPrefix       = "/api/v1"
	LegacyAPIPrefix = "/rentabot/api/v1.0"
)

// LoggerMiddleware attaches the logger to the request context and logs
// each completed request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		log.Info("Request completed",
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// LegacyAPIMiddleware handles requests on the deprecated prefix. By
// default it attaches deprecation headers and lets the equivalently
// registered route answer; with redirect enabled it answers 307 to the
// new path, preserving the query string.
func LegacyAPIMiddleware(redirect bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, LegacyAPIPrefix) {
			c.Next()
			return
		}
		newPath := APIPrefix + strings.TrimPrefix(path, LegacyAPIPrefix)
		log := logger.FromContext(c.Request.Context())
		log.Warn("Deprecated API path used", "path", path, "replacement", newPath)
		if redirect {
			target := newPath
			if query := c.Request.URL.RawQuery; query != "" {
				target = newPath + "?" + query
			}
			c.Redirect(http.StatusTemporaryRedirect, target)
			c.Abort()
			return
		}
		c.Writer.Header().Set("Deprecation", "true")
		c.Writer.Header().Set("Link", "<"+newPath+">; rel=alternate")
		c.Next()
	}
}

// CORSMiddleware enables permissive CORS for browser clients.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
