// Package domain defines the core domain models for the tool-call pipeline.
package domain

// Status represents the lifecycle state of a tool call record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal records never
// transition again; any further decision returns a conflict.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// EventType represents the type of an audit event.
type EventType string

const (
	EventTypeProposed         EventType = "proposed"
	EventTypePolicyDecision   EventType = "policy_decision"
	EventTypeApprovalRequired EventType = "approval_required"
	EventTypeApprovalDecision EventType = "approval_decision"
	EventTypeToolResult       EventType = "tool_result"
	EventTypeExpired          EventType = "expired"
)
