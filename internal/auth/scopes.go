package auth

import "context"

// ScopeAuthorizer decides whether a session's granted scopes satisfy an operation's required scopes.
// An error is an infrastructure failure, not a denial.
type ScopeAuthorizer interface {
	Authorize(ctx context.Context, granted, required []string) (bool, error)
}

// BuiltinScopes applies ScopesAllow.
type BuiltinScopes struct{}

func (BuiltinScopes) Authorize(_ context.Context, granted, required []string) (bool, error) {
	return ScopesAllow(granted, required), nil
}

// ScopesAllow is the default rule: an unscoped session may do anything, an operation with no
// requirement admits anyone, otherwise at least one required scope must be granted.
func ScopesAllow(granted, required []string) bool {
	if len(granted) == 0 || len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// normalizeScopes drops empty entries and duplicates, keeping first-seen order.
func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
