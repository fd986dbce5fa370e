package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(toolName string) map[string]interface{} {
	return map[string]interface{}{
		"tool_name":  toolName,
		"session_id": "sess-1",
		"args":       map[string]interface{}{},
	}
}

func TestDefaultPolicy(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		toolName string
		want     string
	}{
		{"search_emails", DecisionAllow},
		{"find_contacts", DecisionAllow},
		{"list_events", DecisionAllow},
		{"get_weather", DecisionAllow},
		{"draft_email", DecisionRequireApproval},
		{"send_message", DecisionRequireApproval},
		{"dangerous.command", DecisionBlock},
	}
	for _, tt := range tests {
		t.Run(tt.toolName, func(t *testing.T) {
			decision, reason, err := engine.Evaluate(context.Background(), input(tt.toolName))
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestAutoApprovePolicy(t *testing.T) {
	engine, err := NewEngine(context.Background(), AutoApprovePolicy)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(context.Background(), input("draft_email"))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)

	// The disabled list still applies in auto-approve mode.
	decision, _, err = engine.Evaluate(context.Background(), input("dangerous.command"))
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestEvaluateFailsClosedWithoutResult(t *testing.T) {
	engine, err := NewEngine(context.Background(), `
package tool_policy

import rego.v1

result := "allow" if {
	input.tool_name == "only_this_tool"
}
`)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(context.Background(), input("anything_else"))
	require.NoError(t, err)
	assert.Equal(t, DecisionRequireApproval, decision)
	assert.Equal(t, "policy returned no result", reason)
}

func TestEvaluatePlainStringResult(t *testing.T) {
	engine, err := NewEngine(context.Background(), `
package tool_policy

import rego.v1

default result := "allow"
`)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(context.Background(), input("anything"))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
	assert.Empty(t, reason)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "this is not rego")
	assert.Error(t, err)
}
