package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/toolgate/toolgate/internal/domain"
)

// httpStatus maps the error taxonomy to status codes. Everything not
// addressable by the caller is a 500.
func httpStatus(err error) int {
	switch domain.CodeOf(err) {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConflict:
		return http.StatusConflict
	case domain.ErrCodeValidation, domain.ErrCodeInvalidMedia:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the structured failure body. The endpoint always
// returns a well-formed body, never an empty one.
func writeError(c echo.Context, err error, toolName, callID, sessionID string) error {
	code := domain.CodeOf(err)

	// Execution failures carry the tool name on the error itself; callers
	// like the decision handler only know the call id.
	var pe *domain.PipelineError
	if toolName == "" && errors.As(err, &pe) {
		toolName = pe.ToolName
	}
	resp := domain.ErrorResponse{
		Error:     string(code),
		Details:   err.Error(),
		ToolName:  toolName,
		CallID:    callID,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}

	switch code {
	case domain.ErrCodeTimeout:
		resp.Details = "The action timed out and may have partially completed on the provider side. Please check before retrying."
		resp.DebugInfo = map[string]interface{}{"cause": err.Error()}
	case domain.ErrCodeTransient:
		resp.Details = "The tool provider is unavailable right now. The call was retried and can be approved again later."
		resp.DebugInfo = map[string]interface{}{"cause": err.Error()}
	}

	return c.JSON(httpStatus(err), resp)
}
