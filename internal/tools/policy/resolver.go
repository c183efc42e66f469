package policy

// Resolver resolves tool availability from a policy.
type Resolver struct{}

// NewResolver creates a new policy resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// IsAllowed checks whether a tool is available under the given policy.
// A tool is available unless denied; if any allow rule exists, availability
// additionally requires explicit inclusion in an allow rule. Deny wins when
// a tool appears under both.
func (r *Resolver) IsAllowed(policy *Policy, toolName string) bool {
	if policy == nil {
		return true
	}
	normalized := NormalizeTool(toolName)

	for _, d := range NormalizeTools(policy.Deny) {
		if d == normalized {
			return false
		}
	}

	allowed := NormalizeTools(policy.Allow)
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == normalized {
			return true
		}
	}
	return false
}

// Available returns the declared tools that resolve as available, in
// declaration order.
func (r *Resolver) Available(policy *Policy) []string {
	if policy == nil {
		return nil
	}
	var result []string
	for _, tool := range NormalizeTools(policy.Tools) {
		if r.IsAllowed(policy, tool) {
			result = append(result, tool)
		}
	}
	return result
}

// FilterAllowed filters a list of tools to only those allowed by the policy.
func (r *Resolver) FilterAllowed(policy *Policy, tools []string) []string {
	var result []string
	for _, tool := range tools {
		if r.IsAllowed(policy, tool) {
			result = append(result, tool)
		}
	}
	return result
}

// Flags compiles a policy into the two flag groups the external invocation
// understands: the denied-tools list, and the allowed-tools list only when
// an allow-list is active. The returned slices are already normalized.
type Flags struct {
	Denied  []string
	Allowed []string
}

// CompileFlags resolves a policy into invocation flags.
func (r *Resolver) CompileFlags(policy *Policy) Flags {
	if policy == nil {
		return Flags{}
	}
	flags := Flags{Denied: NormalizeTools(policy.Deny)}
	if len(policy.Allow) > 0 {
		// Denied tools never appear in the allowed flag group even if the
		// caller listed them under both.
		for _, tool := range NormalizeTools(policy.Allow) {
			if r.IsAllowed(policy, tool) {
				flags.Allowed = append(flags.Allowed, tool)
			}
		}
	}
	return flags
}
