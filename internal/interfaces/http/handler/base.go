// Package handler contains the gin handlers of the customer service.
package handler

import (
	"errors"
	"net/http"

	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/interfaces/http/dto"
	"github.com/customersvc/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides the error envelope helpers shared by all handlers
type BaseHandler struct{}

// getRequestID returns the ID assigned by middleware.RequestID, falling back
// to the raw header when that middleware is not installed.
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Error sends an error envelope with the given status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// InternalError sends a 500 INTERNAL_ERROR envelope
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 VALIDATION_ERROR envelope for a binding error
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, getRequestID(c)))
}

// HandleError maps err to an envelope. Domain errors keep their code and
// message; anything else becomes a generic 500 and its text is not sent.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
