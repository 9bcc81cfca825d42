// Package requestlog logs every request with a request id
package requestlog

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/campus-awards-api/internal/logger"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"
	requestIDKey    = "request_id"
)

// New returns a middleware that logs the start and the outcome of each request
func New() gin.HandlerFunc {
	l := logger.HTTP()

	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		l.Debug("Request started",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		status := c.Writer.Status()
		logFn := l.Info
		switch {
		case status >= 500:
			logFn = l.Error
		case status >= 400:
			logFn = l.Warn
		}

		logFn("Request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(startTime),
			"size", c.Writer.Size(),
		)
	}
}

// RequestID returns the id assigned to the request
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
