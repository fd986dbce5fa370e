package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
)

// NewBuiltinProvider returns the local provider shipped with the gateway.
// The builtins are deliberately side-effect free.
func NewBuiltinProvider() *LocalProvider {
	p := NewLocalProvider("builtin")

	p.MustRegister(domain.ToolDescriptor{
		Name:        "time.now",
		Description: "Returns the current server time in RFC 3339 format.",
	}, func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
		out, _ := json.Marshal(map[string]string{"time": time.Now().Format(time.RFC3339)})
		return out, nil
	})

	p.MustRegister(domain.ToolDescriptor{
		Name:        "echo",
		Description: "Echoes the given parameters back, for connectivity checks.",
	}, func(ctx context.Context, args domain.Params) (json.RawMessage, error) {
		return json.Marshal(args)
	})

	return p
}
