package domain

// ProposeRequest is submitted when the model proposes a tool invocation.
// CallID is optional; one is generated when absent. Proposing an existing
// CallID again is a no-op.
type ProposeRequest struct {
	CallID    string `json:"call_id,omitempty"`
	SessionID string `json:"session_id"`
	ToolName  string `json:"tool_name"`
	Params    Params `json:"parameters"`
}

// ProposeResponse reports the stable call identifier and the status the
// record landed in (pending, or a terminal state when policy blocked or
// auto-approved the call).
type ProposeResponse struct {
	CallID string            `json:"call_id"`
	Status Status            `json:"status"`
	Result *NormalizedResult `json:"result,omitempty"`
}

// Decision actions accepted by the approval endpoint.
const (
	ActionApprove = "approve"
	ActionCancel  = "cancel"
)

// DecisionRequest is a human approval or cancellation for a pending call.
type DecisionRequest struct {
	Action    string  `json:"action"`
	SessionID string  `json:"session_id,omitempty"`
	Params    *Params `json:"params,omitempty"`
}

// DecisionResponse is returned on a successful approve or cancel.
type DecisionResponse struct {
	Success   bool              `json:"success"`
	Cancelled bool              `json:"cancelled,omitempty"`
	CallID    string            `json:"call_id"`
	Result    *NormalizedResult `json:"result,omitempty"`
}

// ErrorResponse is the structured failure body. The endpoint always returns
// a well-formed result, never an empty body.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Details   string                 `json:"details,omitempty"`
	ToolName  string                 `json:"tool_name,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	DebugInfo map[string]interface{} `json:"debug_info,omitempty"`
}
