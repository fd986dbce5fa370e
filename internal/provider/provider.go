// Package provider abstracts remote tool servers behind a uniform
// enumerate/invoke contract. Providers are assumed unreliable: they may
// time out, return malformed payloads, or silently ignore unknown
// parameters.
package provider

import (
	"context"
	"encoding/json"

	"github.com/toolgate/toolgate/internal/domain"
)

// Provider is one tool server. Implementations exist for MCP servers and
// for in-process executor registries.
type Provider interface {
	// Name identifies the server in health snapshots and descriptors.
	Name() string

	// ListTools enumerates the server's tools with their schemas.
	ListTools(ctx context.Context) ([]domain.ToolDescriptor, error)

	// CallTool invokes a tool and returns the raw provider payload.
	CallTool(ctx context.Context, tool string, args domain.Params) (json.RawMessage, error)
}
