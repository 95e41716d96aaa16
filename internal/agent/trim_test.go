package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barkeephq/barkeep/pkg/types"
)

func exchange(question, answer string) []types.Message {
	return []types.Message{types.UserText(question), types.AssistantText(answer)}
}

func TestTrimNoOpWithinBounds(t *testing.T) {
	msgs := append(exchange("q1", "a1"), exchange("q2", "a2")...)
	got := Trim(msgs, 10, 24000)
	assert.Equal(t, msgs, got)
}

func TestTrimCutsToMaxMessages(t *testing.T) {
	var msgs []types.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, exchange("question", "answer")...)
	}

	got := Trim(msgs, 6, 24000)
	require.Len(t, got, 6)
	assert.Equal(t, types.RoleUser, got[0].Role)
	assert.Equal(t, msgs[len(msgs)-6:], got)
}

func TestTrimRepairsAfterCut(t *testing.T) {
	// Cutting to 3 opens on a dangling tool_use turn; Repair must drop the
	// broken pair
	msgs := []types.Message{
		types.UserText("old question"),
		types.AssistantText("old answer"),
		types.UserText("show my sales"),
		{
			Role:    types.RoleAssistant,
			Content: []types.ContentBlock{types.ToolUseBlock("tu_1", "get_transactions", nil)},
		},
		{
			Role:    types.RoleUser,
			Content: []types.ContentBlock{types.ToolResultBlock("tu_1", "[]")},
		},
		types.AssistantText("no sales today"),
	}

	got := Trim(msgs, 3, 24000)
	require.Len(t, got, 1)
	assert.Equal(t, types.AssistantText("no sales today"), got[0])
}

func TestTrimDropsOldestUntilCharBudget(t *testing.T) {
	big := strings.Repeat("x", 5000)
	msgs := []types.Message{
		types.UserText(big),
		types.AssistantText(big),
		types.UserText("small question"),
		types.AssistantText("small answer"),
	}

	got := Trim(msgs, 10, 1000)
	assert.Equal(t, []types.Message{
		types.UserText("small question"),
		types.AssistantText("small answer"),
	}, got)
}

func TestTrimKeepsFinalExchangeRegardlessOfBudget(t *testing.T) {
	big := strings.Repeat("x", 5000)
	msgs := []types.Message{
		types.UserText(big),
		types.AssistantText(big),
	}

	// Budget far below what the last exchange needs
	got := Trim(msgs, 10, 100)
	assert.Equal(t, msgs, got)
}

func TestTrimCompactsToolResults(t *testing.T) {
	huge := strings.Repeat("r", resultCompactLimit*3)
	msgs := []types.Message{
		types.UserText("show my sales"),
		{
			Role:    types.RoleAssistant,
			Content: []types.ContentBlock{types.ToolUseBlock("tu_1", "get_transactions", nil)},
		},
		{
			Role:    types.RoleUser,
			Content: []types.ContentBlock{types.ToolResultBlock("tu_1", huge)},
		},
		types.AssistantText("lots of sales"),
	}

	got := Trim(msgs, 10, 1<<20)
	require.Len(t, got, 4)
	compacted := got[2].Content[0].Content
	assert.True(t, strings.HasSuffix(compacted, "... (truncated)"))
	assert.LessOrEqual(t, len(compacted), resultCompactLimit+64)

	// The caller's slice is untouched
	assert.Equal(t, huge, msgs[2].Content[0].Content)
}

func TestTrimEmptyHistory(t *testing.T) {
	assert.Empty(t, Trim(nil, 10, 24000))
}
