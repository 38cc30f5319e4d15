package router

import "github.com/customersvc/backend/internal/interfaces/http/handler"

// CustomerRoutes serves GET /customers/:id
func CustomerRoutes(h *handler.CustomerHandler) *DomainGroup {
	return NewDomainGroup("customers", "/customers").
		GET("/:id", h.GetByID)
}

// SystemRoutes serves the liveness and health endpoints
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").
		GET("/health", h.Health).
		GET("/ping", h.Ping)
}
