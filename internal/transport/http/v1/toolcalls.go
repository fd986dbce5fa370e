package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/toolgate/toolgate/internal/domain"
)

// Propose handles a model-proposed tool invocation.
// POST /v1/tool_calls
func (h *Handler) Propose(c echo.Context) error {
	var req domain.ProposeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	resp, err := h.service.Propose(ctx, req)
	if err != nil {
		return writeError(c, err, req.ToolName, req.CallID, req.SessionID)
	}
	return c.JSON(http.StatusOK, resp)
}

// Decide handles a human approval or cancellation.
// POST /v1/tool_calls/:call_id/decide
func (h *Handler) Decide(c echo.Context) error {
	callID := c.Param("call_id")
	var req domain.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	resp, err := h.service.Decide(ctx, callID, req)
	if err != nil {
		return writeError(c, err, "", callID, req.SessionID)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetToolCall returns one record.
// GET /v1/tool_calls/:call_id
func (h *Handler) GetToolCall(c echo.Context) error {
	callID := c.Param("call_id")

	ctx := c.Request().Context()
	rec, err := h.service.GetToolCall(ctx, callID)
	if err != nil {
		return writeError(c, err, "", callID, "")
	}
	return c.JSON(http.StatusOK, rec)
}

// ListToolCalls returns a session's records.
// GET /v1/tool_calls?session_id=...&limit=...
func (h *Handler) ListToolCalls(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx := c.Request().Context()
	recs, err := h.service.ListToolCalls(ctx, sessionID, limit)
	if err != nil {
		return writeError(c, err, "", "", sessionID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tool_calls": recs})
}

// ListEvents returns a call's audit trail.
// GET /v1/tool_calls/:call_id/events
func (h *Handler) ListEvents(c echo.Context) error {
	callID := c.Param("call_id")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx := c.Request().Context()
	events, err := h.service.ListEvents(ctx, callID, limit)
	if err != nil {
		return writeError(c, err, "", callID, "")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}
