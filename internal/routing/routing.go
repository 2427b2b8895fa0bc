// Package routing selects which agent answers the next redirect on a
// WhatsApp-style link.
package routing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/Adhithya200503/AgentSync/internal"
)

// Selection is the outcome of routing one redirect. Cursor is the rotation
// index to persist, or -1 when the record is in single-agent mode and the
// cursor must not move.
type Selection struct {
	Agent  internal.Agent
	Cursor int
}

// SelectTarget picks the next agent. Round-robin mode advances the cursor
// (lastUsedIndex starts at -1, so the first redirect lands on index 0);
// single-agent mode picks the creator. The second return is false when no
// agent can be selected and the caller must fall back to the record's
// stored target URL.
func SelectTarget(rec *internal.LinkRecord) (Selection, bool) {
	if rec.MultiAgentEnabled && len(rec.Agents) > 0 {
		next := (rec.LastUsedIndex + 1) % len(rec.Agents)
		if next < 0 {
			next = 0
		}
		return Selection{Agent: rec.Agents[next], Cursor: next}, true
	}

	creator, ok := lo.Find(rec.Agents, func(a internal.Agent) bool {
		return a.IsCreator
	})
	if !ok {
		// A well-formed record always has a creator agent, but a
		// malformed one must not crash the redirect.
		return Selection{Cursor: -1}, false
	}
	return Selection{Agent: creator, Cursor: -1}, true
}

// TargetURL builds the messaging deep link for the selected agent. The
// agent's own message wins over the link-level one.
func TargetURL(base string, agent internal.Agent, rec *internal.LinkRecord) string {
	message := agent.Message
	if message == "" {
		message = rec.Message
	}
	return fmt.Sprintf("%s/%s?text=%s",
		strings.TrimRight(base, "/"), agent.Phone, url.QueryEscape(message))
}

// AssignmentKey is the AgentAssignment map key for an agent.
func AssignmentKey(agent internal.Agent) string {
	if agent.Email == "" {
		return "unknown"
	}
	return agent.Email
}
