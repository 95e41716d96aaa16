package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/conversation"
	"github.com/barkeephq/barkeep/internal/model"
	"github.com/barkeephq/barkeep/internal/tools"
	"github.com/barkeephq/barkeep/pkg/types"
)

// scriptedModel replays canned responses and records every request
type scriptedModel struct {
	responses []*types.ModelResponse
	errs      []error
	calls     []model.CallRequest
}

func (m *scriptedModel) Call(ctx context.Context, req model.CallRequest) (*types.ModelResponse, error) {
	m.calls = append(m.calls, req)
	i := len(m.calls) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return m.responses[i], nil
}

func textResponse(text string) *types.ModelResponse {
	return &types.ModelResponse{
		StopReason: types.StopEndTurn,
		Content:    []types.ContentBlock{types.TextBlock(text)},
	}
}

func toolResponse(uses ...types.ContentBlock) *types.ModelResponse {
	return &types.ModelResponse{
		StopReason: types.StopToolUse,
		Content:    uses,
	}
}

// testRegistry returns a registry with an echo tool and a chart tool
func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(zap.NewNop())
	r.MustRegister(&tools.Tool{
		Name:        "echo",
		Description: "echoes its input back",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			text, _ := input["text"].(string)
			return types.TextOutcome("echo: " + text), nil
		},
	})
	r.MustRegister(&tools.Tool{
		Name:        "chart",
		Description: "produces a tiny image",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			label, _ := input["label"].(string)
			return types.ArtifactOutcome("Chart generated.", []byte(label)), nil
		},
	})
	return r
}

func newTestEngine(m model.Client, store conversation.Store, t *testing.T, opts ...Option) *Engine {
	return NewEngine(m, testRegistry(t), store, zap.NewNop(), opts...)
}

func TestRunEmptyPrompt(t *testing.T) {
	e := newTestEngine(&scriptedModel{}, conversation.NewMemoryStore(), t)
	_, err := e.Run(context.Background(), RunRequest{UserID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestRunDirectAnswer(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{textResponse("all quiet today")}}
	store := conversation.NewMemoryStore()
	e := newTestEngine(m, store, t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "how was today?"})
	require.NoError(t, err)
	assert.Equal(t, "all quiet today", result.Text)
	assert.Empty(t, result.Artifacts)

	require.Len(t, m.calls, 1)
	assert.True(t, m.calls[0].ToolsEnabled)
	assert.NotEmpty(t, m.calls[0].Tools, "tool schema goes out on every loop call")
	assert.NotEmpty(t, m.calls[0].System)

	stored, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []types.Message{
		types.UserText("how was today?"),
		types.AssistantText("all quiet today"),
	}, stored)
}

func TestRunToolRoundTrip(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{
		toolResponse(types.ToolUseBlock("tu_1", "echo", map[string]any{"text": "hi"})),
		textResponse("the echo said hi"),
	}}
	store := conversation.NewMemoryStore()
	e := newTestEngine(m, store, t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "run the echo"})
	require.NoError(t, err)
	assert.Equal(t, "the echo said hi", result.Text)

	require.Len(t, m.calls, 2)

	// Second call carries the assistant tool_use turn and the matching
	// tool_result turn
	second := m.calls[1].Messages
	require.Len(t, second, 3)
	assert.True(t, second[1].HasToolUse())
	require.True(t, second[2].HasToolResult())
	assert.Equal(t, "tu_1", second[2].Content[0].ToolUseID)
	assert.Equal(t, "echo: hi", second[2].Content[0].Content)
}

func TestRunDisallowedToolContinuesLoop(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{
		toolResponse(types.ToolUseBlock("tu_1", "drop_tables", nil)),
		textResponse("that tool does not exist"),
	}}
	e := newTestEngine(m, conversation.NewMemoryStore(), t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "do something odd"})
	require.NoError(t, err)
	assert.Equal(t, "that tool does not exist", result.Text)

	// The refusal travels back to the model as an ordinary tool result
	require.Len(t, m.calls, 2)
	second := m.calls[1].Messages
	require.True(t, second[2].HasToolResult())
	assert.Contains(t, second[2].Content[0].Content, "tool not allowed: drop_tables")
}

func TestRunArtifactsInProductionOrder(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{
		toolResponse(
			types.ToolUseBlock("tu_1", "chart", map[string]any{"label": "first"}),
			types.ToolUseBlock("tu_2", "chart", map[string]any{"label": "second"}),
		),
		textResponse("two charts attached"),
	}}
	e := newTestEngine(m, conversation.NewMemoryStore(), t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "chart it twice"})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 2)
	assert.Equal(t, []byte("first"), result.Artifacts[0])
	assert.Equal(t, []byte("second"), result.Artifacts[1])
}

func TestRunArtifactsAcrossTurns(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{
		toolResponse(types.ToolUseBlock("tu_1", "chart", map[string]any{"label": "week"})),
		toolResponse(types.ToolUseBlock("tu_2", "chart", map[string]any{"label": "month"})),
		textResponse("both charts attached"),
	}}
	e := newTestEngine(m, conversation.NewMemoryStore(), t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "chart week then month"})
	require.NoError(t, err)
	assert.Equal(t, "both charts attached", result.Text)
	require.Len(t, result.Artifacts, 2)
	assert.Equal(t, []byte("week"), result.Artifacts[0])
	assert.Equal(t, []byte("month"), result.Artifacts[1])
}

func TestRunIterationsExhausted(t *testing.T) {
	m := &scriptedModel{responses: []*types.ModelResponse{
		toolResponse(types.ToolUseBlock("tu_1", "echo", map[string]any{"text": "a"})),
		toolResponse(types.ToolUseBlock("tu_2", "echo", map[string]any{"text": "b"})),
		textResponse("partial summary"),
	}}
	store := conversation.NewMemoryStore()
	e := newTestEngine(m, store, t)

	result, err := e.Run(context.Background(), RunRequest{
		UserID:        "u1",
		Prompt:        "keep going",
		MaxIterations: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "partial summary", result.Text)
	assert.Empty(t, result.Artifacts)

	require.Len(t, m.calls, 3)
	assert.True(t, m.calls[0].ToolsEnabled)
	assert.True(t, m.calls[1].ToolsEnabled)

	// The final call must not offer tools and must end with the synthetic
	// summarization request
	last := m.calls[2]
	assert.False(t, last.ToolsEnabled)
	require.NotEmpty(t, last.Messages)
	final := last.Messages[len(last.Messages)-1]
	assert.Equal(t, types.RoleUser, final.Role)
	assert.Contains(t, final.TextContent(), "Summarize what you have found")

	// The summary is stored as the closing assistant turn
	stored, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, types.AssistantText("partial summary"), stored[len(stored)-1])
}

func TestRunSummarizationFailureFallsBack(t *testing.T) {
	m := &scriptedModel{
		responses: []*types.ModelResponse{
			toolResponse(types.ToolUseBlock("tu_1", "echo", map[string]any{"text": "a"})),
			nil,
		},
		errs: []error{nil, errors.New("boom")},
	}
	e := newTestEngine(m, conversation.NewMemoryStore(), t)

	result, err := e.Run(context.Background(), RunRequest{
		UserID:        "u1",
		Prompt:        "keep going",
		MaxIterations: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, exhaustedFallback, result.Text)
}

func TestRunModelFailureMidLoop(t *testing.T) {
	m := &scriptedModel{errs: []error{errors.New("api down")}}
	store := conversation.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "u1", []types.Message{
		types.UserText("earlier"), types.AssistantText("history"),
	}))
	e := newTestEngine(m, store, t)

	_, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "hello"})
	require.Error(t, err)

	// A failed run leaves stored history untouched
	stored, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

// failingStore wraps a memory store and fails selected operations
type failingStore struct {
	*conversation.MemoryStore
	getErr error
	putErr error
}

func (s *failingStore) Get(ctx context.Context, userID string) ([]types.Message, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, userID)
}

func (s *failingStore) Put(ctx context.Context, userID string, msgs []types.Message) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStore.Put(ctx, userID, msgs)
}

func TestRunHistoryLoadFailureIsFatal(t *testing.T) {
	store := &failingStore{MemoryStore: conversation.NewMemoryStore(), getErr: errors.New("disk gone")}
	e := newTestEngine(&scriptedModel{}, store, t)

	_, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "hello"})
	assert.ErrorContains(t, err, "loading conversation")
}

func TestRunStoreFailureDoesNotFailRun(t *testing.T) {
	store := &failingStore{MemoryStore: conversation.NewMemoryStore(), putErr: errors.New("disk full")}
	m := &scriptedModel{responses: []*types.ModelResponse{textResponse("fine")}}
	e := newTestEngine(m, store, t)

	result, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "fine", result.Text)
}

func TestRunRepairsStoredHistoryBeforeUse(t *testing.T) {
	store := conversation.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "u1", []types.Message{
		{
			Role:    types.RoleUser,
			Content: []types.ContentBlock{types.ToolResultBlock("tu_0", "stale")},
		},
		types.UserText("old question"),
		types.AssistantText("old answer"),
	}))

	m := &scriptedModel{responses: []*types.ModelResponse{textResponse("done")}}
	e := newTestEngine(m, store, t)

	_, err := e.Run(context.Background(), RunRequest{UserID: "u1", Prompt: "new question"})
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	first := m.calls[0].Messages[0]
	assert.False(t, first.HasToolResult(), "orphaned tool result must not reach the model")
	assert.Equal(t, "old question", first.TextContent())
}

func TestClearConversation(t *testing.T) {
	store := conversation.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "u1", []types.Message{types.UserText("hi")}))

	e := newTestEngine(&scriptedModel{}, store, t)
	require.NoError(t, e.ClearConversation(context.Background(), "u1"))

	stored, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
