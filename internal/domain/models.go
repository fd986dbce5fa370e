package domain

import (
	"encoding/json"
	"time"
)

// ToolCallRecord is the durable record of one proposed tool invocation.
// Exactly one record exists per CallID.
type ToolCallRecord struct {
	CallID       string            `json:"call_id"`
	SessionID    string            `json:"session_id"`
	ToolName     string            `json:"tool_name"`
	Params       Params            `json:"parameters"`
	Status       Status            `json:"status"`
	Result       *NormalizedResult `json:"result,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ContentPart is one user-presentable piece of a normalized result.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NormalizedResult is the uniform shape every raw provider payload is
// reduced to before persistence.
type NormalizedResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError"`
}

// ToolDescriptor describes one remote capability as enumerated from a
// tool server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Server      string          `json:"server"`
}

// ServerHealth is a per-server snapshot taken during discovery.
type ServerHealth struct {
	Server    string `json:"server"`
	Healthy   bool   `json:"healthy"`
	ToolCount int    `json:"tool_count"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// DiscoverySnapshot aggregates every configured server's tools into one
// namespace, plus the health observed while enumerating them.
type DiscoverySnapshot struct {
	Tools     []ToolDescriptor `json:"tools"`
	Health    []ServerHealth   `json:"server_health"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Tool returns the descriptor for name, or nil.
func (s DiscoverySnapshot) Tool(name string) *ToolDescriptor {
	for i := range s.Tools {
		if s.Tools[i].Name == name {
			return &s.Tools[i]
		}
	}
	return nil
}

// Event is one audit-trail entry for a tool call.
type Event struct {
	EventID string          `json:"event_id"`
	CallID  string          `json:"call_id"`
	Ts      int64           `json:"ts"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
