// Package v1 provides the HTTP handlers for the tool-call pipeline.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/toolgate/toolgate/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Tool call lifecycle
	e.POST("/v1/tool_calls", h.Propose)
	e.POST("/v1/tool_calls/:call_id/decide", h.Decide)
	e.GET("/v1/tool_calls/:call_id", h.GetToolCall)
	e.GET("/v1/tool_calls/:call_id/events", h.ListEvents)
	e.GET("/v1/tool_calls", h.ListToolCalls)

	// Discovery
	e.GET("/v1/tools", h.ListTools)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
