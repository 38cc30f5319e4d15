package handler

import (
	"net/http"

	customerapp "github.com/customersvc/backend/internal/application/customer"
	"github.com/customersvc/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CustomerHandler serves customer lookups
type CustomerHandler struct {
	BaseHandler
	customerService *customerapp.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *customerapp.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// CustomerURI binds the id path segment. Any int64 is accepted; ids that were
// never stored, zero and negatives included, simply are not found.
type CustomerURI struct {
	ID int64 `uri:"id"`
}

// GetByID handles GET /customers/:id.
//
//	200 {"id":1234,"firstName":"Test","lastName":"First"}
//	404 empty body when no customer has the id
//	400 VALIDATION_ERROR envelope when id is not an int64
//	500 INTERNAL_ERROR envelope when the store fails; domain errors keep their code
func (h *CustomerHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	var uri CustomerURI
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.L(ctx).Debug("Rejected customer id",
			zap.String("id", c.Param("id")),
			zap.Error(err),
		)
		h.ValidationError(c, err)
		return
	}

	resp, found, err := h.customerService.GetByID(ctx, uri.ID)
	if err != nil {
		logger.L(ctx).Error("Failed to load customer",
			zap.Int64("customer_id", uri.ID),
			zap.Error(err),
		)
		_ = c.Error(err)
		h.HandleError(c, err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, resp)
}
