package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"deepcheck/internal/logging"
	"deepcheck/internal/services"
)

const (
	headerRequestID   = "X-Request-ID"
	headerCache       = "X-Cache"
	headerFingerprint = "X-Fingerprint"
)

// requestID assigns a correlation id and stores it on the request context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.Duration("elapsed", time.Since(start)),
		}
		if cache := c.Writer.Header().Get(headerCache); cache != "" {
			attrs = append(attrs, logging.String("cache", cache))
		}
		log := logging.WithContext(c.Request.Context(), logger)
		if status >= http.StatusInternalServerError {
			log.Warn("request served", logging.Args(attrs...)...)
			return
		}
		log.Info("request served", logging.Args(attrs...)...)
	}
}

// recovery turns handler panics into a 500 with a JSON body.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logging.WithContext(c.Request.Context(), logger).Error("handler panic",
			logging.String(logging.FieldEventType, "handler_panic"),
			logging.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
