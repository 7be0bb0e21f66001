package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digijoe7/mezo-relayer/logging"
)

// RequestLogger logs each request after completion and records the
// request metrics. The route template is used as the path label to
// keep metric cardinality bounded.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		httpRequestLatencySeconds.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())

		logger.Debug().
			Str(logging.FieldMethod, c.Request.Method).
			Str(logging.FieldPath, c.Request.URL.Path).
			Int(logging.FieldStatus, status).
			Str(logging.FieldRemoteAddr, c.ClientIP()).
			Dur(logging.FieldDuration, time.Since(start)).
			Msg("request completed")
	}
}

// Recovery converts handler panics into 500 responses instead of
// killing the process.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.PanicRecoveriesTotal.WithLabelValues(logging.ComponentHTTPServer).Inc()
				logger.Error().
					Str("panic_value", fmt.Sprintf("%v", r)).
					Str("stack_trace", string(debug.Stack())).
					Str(logging.FieldPath, c.Request.URL.Path).
					Msg("PANIC RECOVERED in HTTP handler")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// CORS sets the allow headers for the configured origin and
// short-circuits preflight requests with no body.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// BodyLimit rejects oversized request bodies before they reach JSON
// decoding. Declared lengths are rejected up front; undeclared bodies
// are capped by a limited reader and fail during binding.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds %d bytes", maxBytes),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
