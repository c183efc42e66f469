// Package sanitize cleans raw process output into a single assistant turn.
// The external tool sometimes hallucinates a continued multi-turn transcript
// or embeds tool-invocation markup in its answer; both are stripped here.
// Sanitize is idempotent: sanitizing already-clean text is a no-op.
package sanitize

import (
	"strings"

	"github.com/haasonsaas/replay/pkg/models"
)

// Role labels the external tool uses for transcript turns.
var turnMarkers = []string{"Human:", "Assistant:"}

// Result is the cleaned output of one invocation.
type Result struct {
	Text     string
	ToolUses []models.ToolUse
}

// Sanitize cleans raw output: extracts tool-use blocks, truncates at the
// first hallucinated turn boundary, strips leading role labels, and trims
// surrounding whitespace.
func Sanitize(raw string) Result {
	text, uses := extractToolUses(raw)
	text = truncateAtTurnMarker(text)
	text = stripLeadingRoleLabel(text)
	return Result{Text: strings.TrimSpace(text), ToolUses: uses}
}

// truncateAtTurnMarker cuts the text at the first line that begins with a
// role label. A label on the very first line is the tool echoing its own
// role prefix, not a new turn, so it is skipped here and handled by
// stripLeadingRoleLabel. Labels that appear mid-line are kept: legitimate
// answer text can contain the substring.
func truncateAtTurnMarker(text string) string {
	offset := 0
	first := true
	for offset <= len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var next int
		if lineEnd < 0 {
			next = len(text) + 1
		} else {
			next = offset + lineEnd + 1
		}

		line := strings.TrimLeft(text[offset:min(next-1, len(text))], " \t")
		if !first && hasTurnMarker(line) {
			return text[:offset]
		}
		if strings.TrimSpace(line) != "" {
			first = false
		}
		offset = next
	}
	return text
}

func hasTurnMarker(line string) bool {
	for _, marker := range turnMarkers {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

// stripLeadingRoleLabel removes role labels from the start of the text.
// Stripping loops so that stacked labels ("Assistant: Assistant: hi")
// collapse in one pass, which keeps Sanitize idempotent.
func stripLeadingRoleLabel(text string) string {
	for {
		trimmed := strings.TrimSpace(text)
		stripped := false
		for _, marker := range turnMarkers {
			if rest, ok := strings.CutPrefix(trimmed, marker); ok {
				text = rest
				stripped = true
				break
			}
		}
		if !stripped {
			return text
		}
	}
}
