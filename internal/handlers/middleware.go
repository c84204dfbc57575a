package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"statement-reconciliation-backend/pkg/logger"
)

const (
	TenantHeader    = "X-Tenant-ID"
	UserHeader      = "X-User-ID"
	RequestIDHeader = "X-Request-ID"

	tenantKey = "tenant_id"
	userKey   = "user_id"
)

// RequestLogger puts a request-scoped entry into the request context and
// logs every completed request. It should be the first middleware.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), entry))

		c.Next()

		done := entry.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			done.Error("request failed")
			return
		}
		done.Info("request completed")
	}
}

// TenantScope requires a tenant id on every request. Authentication happens
// upstream; this only extracts the identifiers it forwards.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(TenantHeader))
		if err != nil || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "missing or invalid " + TenantHeader + " header",
				"code":  "invalid_tenant",
			})
			return
		}
		c.Set(tenantKey, tenantID)
		c.Set(userKey, c.GetHeader(UserHeader))

		entry := logger.FromContext(c.Request.Context()).WithField("tenant_id", tenantID)
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), entry))

		c.Next()
	}
}

func tenantID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(tenantKey)
	tenant, _ := id.(uuid.UUID)
	return tenant
}

func userID(c *gin.Context) string {
	return c.GetString(userKey)
}
