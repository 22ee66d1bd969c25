// Package policy gates tool execution with an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.donation_policy.decision"),
		rego.Module("donation_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the donation policy. Input is a map with keys: tool,
// args, user_id and cap. Returns the decision (allow or block).
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means it was not
		// loaded, so fail open the way the original bot behaved.
		return "allow", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}

	return "allow", nil
}

// DefaultPolicy blocks donation amounts outside sane bounds; everything
// else is allowed. The ceiling comes in through input.cap.
const DefaultPolicy = `
package donation_policy

default decision = "allow"

money_tools := {"make_donation", "sign_subscription", "change_donation", "change_subscription"}

decision = "block" {
	money_tools[input.tool]
	input.args.amount > input.cap
}

decision = "block" {
	money_tools[input.tool]
	input.args.amount <= 0
}
`
