package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/pkg/logger"
)

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

// handleError maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking its text.
func handleError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context())

	var (
		notFound    *errs.NotFoundError
		crossTenant *errs.CrossTenantError
		unsupported *errs.UnsupportedFormatError
		validation  *errs.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		log.WithError(err).Warn("resource not found")
		writeError(c, http.StatusNotFound, "not_found", notFound.Message)
	case errors.As(err, &crossTenant):
		log.WithError(err).Warn("cross-tenant access rejected")
		writeError(c, http.StatusForbidden, "cross_tenant", crossTenant.Message)
	case errors.As(err, &unsupported):
		log.WithError(err).Warn("unsupported statement format")
		writeError(c, http.StatusUnsupportedMediaType, "unsupported_format", unsupported.Message)
	case errors.As(err, &validation):
		log.WithError(err).Warn("validation failed")
		writeError(c, http.StatusBadRequest, "invalid_input", validation.Message)
	default:
		log.WithError(err).WithField("type", fmt.Sprintf("%T", err)).Error("unexpected error")
		writeError(c, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
