// Package policy resolves tool allow/deny rules into the availability set
// and invocation flags passed to the external tool. Deny rules always take
// precedence over allow rules.
package policy

import (
	"strings"
)

// Policy defines tool access rules combining explicit allow and deny lists.
// An empty policy makes every declared tool available. As soon as any
// allow rule exists, availability additionally requires explicit inclusion
// in an allow rule.
type Policy struct {
	// Tools are the declared tool names the external invocation knows about.
	Tools []string `json:"tools,omitempty" yaml:"tools"`

	// Allow explicitly allows these tools.
	Allow []string `json:"allow,omitempty" yaml:"allow"`

	// Deny explicitly denies these tools (overrides allow).
	Deny []string `json:"deny,omitempty" yaml:"deny"`
}

// NormalizeTool normalizes a tool name by trimming whitespace and lowering.
func NormalizeTool(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTools normalizes a list of tool names, dropping empties.
func NormalizeTools(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		normalized := NormalizeTool(name)
		if normalized != "" {
			result = append(result, normalized)
		}
	}
	return result
}

// Merge merges multiple policies into one. Declared tools, allows and denies
// accumulate; later policies never relax earlier denies.
func Merge(policies ...*Policy) *Policy {
	result := &Policy{}
	for _, p := range policies {
		if p == nil {
			continue
		}
		result.Tools = append(result.Tools, p.Tools...)
		result.Allow = append(result.Allow, p.Allow...)
		result.Deny = append(result.Deny, p.Deny...)
	}
	return result
}

// NewPolicy creates a policy declaring the given tools.
func NewPolicy(tools ...string) *Policy {
	return &Policy{Tools: tools}
}

// WithAllow adds tools to the allow list.
func (p *Policy) WithAllow(tools ...string) *Policy {
	p.Allow = append(p.Allow, tools...)
	return p
}

// WithDeny adds tools to the deny list.
func (p *Policy) WithDeny(tools ...string) *Policy {
	p.Deny = append(p.Deny, tools...)
	return p
}
