// Package prompt serializes a session's history into the single payload fed
// to the external tool. The tool retains no state between invocations, so
// continuity is reconstructed by literal replay: every stored turn is
// rendered byte-identically, in order, on every call.
package prompt

import (
	"strings"

	"github.com/haasonsaas/replay/pkg/models"
)

// Labels used when rendering transcript turns.
const (
	HumanLabel     = "Human"
	AssistantLabel = "Assistant"
)

// Builder renders prompt payloads.
type Builder struct {
	// SystemPrompt is emitted before the transcript when non-empty.
	SystemPrompt string
}

// NewBuilder creates a prompt builder with the given system instruction.
func NewBuilder(systemPrompt string) *Builder {
	return &Builder{SystemPrompt: systemPrompt}
}

// Build serializes prior history plus the new user input into one payload:
// the system instruction (if any) and a blank separator, each prior turn as
// "<Label>: <content>" in chronological order, the new input under the Human
// label, and a trailing empty Assistant cue signalling the tool to produce
// exactly one continuation. System-role history entries (compaction
// summaries and the like) are stored but skipped from per-turn rendering.
func (b *Builder) Build(history []models.Message, input string) string {
	var lines []string
	if b.SystemPrompt != "" {
		lines = append(lines, b.SystemPrompt, "")
	}
	for _, msg := range history {
		label, ok := roleLabel(msg.Role)
		if !ok {
			continue
		}
		lines = append(lines, label+": "+msg.Content)
	}
	lines = append(lines, HumanLabel+": "+input, AssistantLabel+":")
	return strings.Join(lines, "\n")
}

// roleLabel maps a stored role to its transcript label. System entries have
// no per-turn rendering.
func roleLabel(role models.Role) (string, bool) {
	switch role {
	case models.RoleUser:
		return HumanLabel, true
	case models.RoleAssistant:
		return AssistantLabel, true
	default:
		return "", false
	}
}

// EstimateTokens approximates the token count of a payload. The external
// tool does not report usage, so records carry this rough chars/4 figure.
func EstimateTokens(payload string) int {
	return (len(payload) + 3) / 4
}
