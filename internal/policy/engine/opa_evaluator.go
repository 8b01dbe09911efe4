// Package engine evaluates scope policies written in Rego.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const scopesQuery = "data.tokengate.scopes.allow"

// DefaultScopePolicy encodes the built-in rule: an unscoped session may do anything, an
// operation with no requirement admits anyone, otherwise one required scope must be granted.
const DefaultScopePolicy = `package tokengate.scopes

default allow := false

allow if count(input.granted) == 0

allow if count(input.required) == 0

allow if {
	some scope in input.required
	scope in input.granted
}
`

// ErrNoResult is returned when the policy leaves data.tokengate.scopes.allow undefined.
var ErrNoResult = errors.New("policy query returned no result")

// OPAAuthorizer decides scope checks with a compiled Rego module.
type OPAAuthorizer struct {
	query rego.PreparedEvalQuery
}

// NewOPAAuthorizer compiles module, or DefaultScopePolicy when module is empty.
func NewOPAAuthorizer(ctx context.Context, module string) (*OPAAuthorizer, error) {
	if module == "" {
		module = DefaultScopePolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"scopes.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile scope policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(scopesQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare scope policy: %w", err)
	}
	return &OPAAuthorizer{query: q}, nil
}

// NewOPAAuthorizerFromFile reads a Rego module from path. An empty path uses DefaultScopePolicy.
func NewOPAAuthorizerFromFile(ctx context.Context, path string) (*OPAAuthorizer, error) {
	if path == "" {
		return NewOPAAuthorizer(ctx, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope policy: %w", err)
	}
	return NewOPAAuthorizer(ctx, string(data))
}

// Authorize evaluates the policy with input {granted, required}.
func (a *OPAAuthorizer) Authorize(ctx context.Context, granted, required []string) (bool, error) {
	input := map[string]interface{}{
		"granted":  toList(granted),
		"required": toList(required),
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval scope policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, ErrNoResult
	}
	allow, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("scope policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allow, nil
}

// HealthCheck evaluates the compiled module with a minimal input. Returns nil on success.
func (a *OPAAuthorizer) HealthCheck(ctx context.Context) error {
	_, err := a.Authorize(ctx, nil, nil)
	return err
}

// toList keeps empty inputs as [] rather than null so count() stays defined.
func toList(scopes []string) []interface{} {
	out := make([]interface{}, len(scopes))
	for i, s := range scopes {
		out[i] = s
	}
	return out
}
