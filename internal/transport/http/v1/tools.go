package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListTools returns the discovery snapshot for a routing context.
// GET /v1/tools?context=...
func (h *Handler) ListTools(c echo.Context) error {
	routingKey := c.QueryParam("context")

	ctx := c.Request().Context()
	snapshot, err := h.service.GetTools(ctx, routingKey)
	if err != nil {
		return writeError(c, err, "", "", "")
	}
	return c.JSON(http.StatusOK, snapshot)
}
