package sanitize

import (
	"encoding/json"
	"strings"

	"github.com/haasonsaas/replay/pkg/models"
)

// Tool invocation markup embedded in raw output.
const (
	blockOpen  = "<tool_use>"
	blockClose = "</tool_use>"
	nameOpen   = "<tool_name>"
	nameClose  = "</tool_name>"
	paramOpen  = "<parameters>"
	paramClose = "</parameters>"
)

// block is one tool-use region found in the source text. A block without a
// closing tag runs to the end of the source and is never well formed.
type block struct {
	start, end int
	use        models.ToolUse
	wellFormed bool
}

// blockScanner walks source text producing tool-use blocks one at a time.
// It is tolerant by construction: malformed markup yields a block that is
// discarded from the text but never surfaced as an error.
type blockScanner struct {
	src string
	pos int
}

func newBlockScanner(src string) *blockScanner {
	return &blockScanner{src: src}
}

// next returns the next block, or ok=false when the source is exhausted.
func (s *blockScanner) next() (block, bool) {
	rel := strings.Index(s.src[s.pos:], blockOpen)
	if rel < 0 {
		return block{}, false
	}
	start := s.pos + rel

	closeRel := strings.Index(s.src[start:], blockClose)
	if closeRel < 0 {
		// Unclosed block: everything from the open tag onward is markup
		// the tool never finished emitting.
		s.pos = len(s.src)
		return block{start: start, end: len(s.src)}, true
	}
	end := start + closeRel + len(blockClose)
	s.pos = end

	b := block{start: start, end: end}
	inner := s.src[start+len(blockOpen) : end-len(blockClose)]

	name := innerTag(inner, nameOpen, nameClose)
	params := innerTag(inner, paramOpen, paramClose)
	name = strings.TrimSpace(name)
	params = strings.TrimSpace(params)
	if name == "" || !json.Valid([]byte(params)) {
		return b, true
	}

	b.use = models.ToolUse{Name: name, Input: json.RawMessage(params)}
	b.wellFormed = true
	return b, true
}

// innerTag extracts the text between the first open/close tag pair.
// Returns "" when either tag is missing or out of order.
func innerTag(src, open, close string) string {
	i := strings.Index(src, open)
	if i < 0 {
		return ""
	}
	rest := src[i+len(open):]
	j := strings.Index(rest, close)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// extractToolUses strips every tool-use block from raw text and returns the
// remaining text plus the invocations that parsed cleanly.
func extractToolUses(raw string) (string, []models.ToolUse) {
	scanner := newBlockScanner(raw)

	var uses []models.ToolUse
	var sb strings.Builder
	last := 0
	for {
		b, ok := scanner.next()
		if !ok {
			break
		}
		sb.WriteString(raw[last:b.start])
		last = b.end
		if b.wellFormed {
			uses = append(uses, b.use)
		}
	}
	sb.WriteString(raw[last:])
	return sb.String(), uses
}
