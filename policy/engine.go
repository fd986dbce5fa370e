// Package policy evaluates which proposed tool calls may execute without a
// human decision. Decisions come from an OPA/rego policy so operators can
// swap rules without rebuilding.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions a policy may return.
const (
	DecisionAllow           = "allow"
	DecisionRequireApproval = "require_approval"
	DecisionBlock           = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine with the given rego module.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.result"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy. Input carries tool_name, session_id and
// args. The policy returns either a decision string or an object
// {decision, reason}.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The bundled policies always define a default; an empty result
		// means a custom policy forgot one. Fail closed.
		return DecisionRequireApproval, "policy returned no result", nil
	}

	val := results[0].Expressions[0].Value
	switch v := val.(type) {
	case string:
		return v, "", nil
	case map[string]interface{}:
		decision, _ := v["decision"].(string)
		reason, _ := v["reason"].(string)
		if decision == "" {
			return DecisionRequireApproval, "policy returned no decision", nil
		}
		return decision, reason, nil
	}
	return DecisionRequireApproval, "unexpected policy result type", nil
}

// DefaultPolicy requires human approval for everything except read-only
// lookups, and blocks tools on the disabled list.
const DefaultPolicy = `
package tool_policy

import rego.v1

default result := {"decision": "require_approval", "reason": "human approval required"}

disabled_tools := {"dangerous.command"}

readonly_prefixes := {"search_", "find_", "list_", "get_"}

result := {"decision": "block", "reason": "tool is disabled by policy"} if {
	input.tool_name in disabled_tools
}

result := {"decision": "allow", "reason": "read-only tool"} if {
	not input.tool_name in disabled_tools
	some prefix in readonly_prefixes
	startswith(input.tool_name, prefix)
}
`

// AutoApprovePolicy executes every proposal immediately upon submission.
// Installed when the operator enables auto-approve mode; the disabled list
// still applies.
const AutoApprovePolicy = `
package tool_policy

import rego.v1

default result := {"decision": "allow", "reason": "auto-approve mode"}

result := {"decision": "block", "reason": "tool is disabled by policy"} if {
	input.tool_name == "dangerous.command"
}
`
