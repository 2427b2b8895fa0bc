package routing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhithya200503/AgentSync/internal"
)

func makeAgents(n int) []internal.Agent {
	agents := make([]internal.Agent, n)
	for i := range agents {
		agents[i] = internal.Agent{
			IsCreator: i == 0,
			Name:      fmt.Sprintf("agent-%d", i),
			Email:     fmt.Sprintf("agent-%d@example.com", i),
			Phone:     fmt.Sprintf("100%d", i),
			JoinedAt:  time.Now(),
		}
	}
	return agents
}

func TestSelectTarget_RoundRobinSequence(t *testing.T) {
	rec := &internal.LinkRecord{
		Agents:            makeAgents(3),
		MultiAgentEnabled: true,
		LastUsedIndex:     -1,
	}

	// K sequential redirects visit agents 0, 1, 2, 0, 1, ... in order.
	for k := range 7 {
		sel, ok := SelectTarget(rec)
		require.True(t, ok)
		assert.Equal(t, k%3, sel.Cursor)
		assert.Equal(t, rec.Agents[k%3].Email, sel.Agent.Email)
		rec.LastUsedIndex = sel.Cursor
	}
}

func TestSelectTarget_SingleAgentPicksCreator(t *testing.T) {
	rec := &internal.LinkRecord{
		Agents:        makeAgents(3),
		LastUsedIndex: -1,
	}

	sel, ok := SelectTarget(rec)
	require.True(t, ok)
	assert.True(t, sel.Agent.IsCreator)
	assert.Equal(t, -1, sel.Cursor, "single-agent mode must not move the cursor")
}

func TestSelectTarget_MultiAgentWithEmptyListFallsBack(t *testing.T) {
	rec := &internal.LinkRecord{MultiAgentEnabled: true}

	_, ok := SelectTarget(rec)
	assert.False(t, ok)
}

func TestSelectTarget_NoCreator(t *testing.T) {
	agents := makeAgents(2)
	agents[0].IsCreator = false

	rec := &internal.LinkRecord{Agents: agents}

	_, ok := SelectTarget(rec)
	assert.False(t, ok)
}

func TestTargetURL(t *testing.T) {
	rec := &internal.LinkRecord{Message: "hello there"}
	agent := internal.Agent{Phone: "4915112345678"}

	got := TargetURL("https://wa.me", agent, rec)
	assert.Equal(t, "https://wa.me/4915112345678?text=hello+there", got)
}

func TestTargetURL_AgentMessageWins(t *testing.T) {
	rec := &internal.LinkRecord{Message: "link message"}
	agent := internal.Agent{Phone: "123", Message: "agent message"}

	got := TargetURL("https://wa.me/", agent, rec)
	assert.Equal(t, "https://wa.me/123?text=agent+message", got)
}

func TestAssignmentKey(t *testing.T) {
	assert.Equal(t, "a@b.com", AssignmentKey(internal.Agent{Email: "a@b.com"}))
	assert.Equal(t, "unknown", AssignmentKey(internal.Agent{}))
}
