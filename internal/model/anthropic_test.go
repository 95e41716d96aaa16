package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barkeephq/barkeep/pkg/types"
)

func testAnthropicClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewAnthropicClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	_, err := NewAnthropicClient("")
	assert.Error(t, err)
}

func TestCallHeadersAndBody(t *testing.T) {
	var gotBody map[string]any
	c := testAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"stop_reason":"end_turn","content":[{"type":"text","text":"hello"}]}`)
	})

	resp, err := c.Call(context.Background(), CallRequest{
		System:       "be helpful",
		Messages:     []types.Message{types.UserText("hi")},
		Tools:        []types.ToolDef{{Name: "get_transactions"}},
		ToolsEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StopEndTurn, resp.StopReason)
	assert.Equal(t, "hello", resp.TextContent())

	assert.Equal(t, "be helpful", gotBody["system"])
	assert.NotNil(t, gotBody["tools"])
	assert.EqualValues(t, 4096, gotBody["max_tokens"])
}

func TestCallOmitsToolsWhenDisabled(t *testing.T) {
	var gotBody map[string]any
	c := testAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"stop_reason":"end_turn","content":[{"type":"text","text":"summary"}]}`)
	})

	_, err := c.Call(context.Background(), CallRequest{
		Messages:     []types.Message{types.UserText("hi")},
		Tools:        []types.ToolDef{{Name: "get_transactions"}},
		ToolsEnabled: false,
	})
	require.NoError(t, err)
	_, present := gotBody["tools"]
	assert.False(t, present, "tools must be absent on a tools-disabled call")
}

func TestCallDecodesToolUse(t *testing.T) {
	c := testAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"stop_reason":"tool_use",
			"content":[
				{"type":"text","text":"let me check"},
				{"type":"tool_use","id":"tu_1","name":"get_transactions","input":{"date_from":"20250301"}}
			]
		}`)
	})

	resp, err := c.Call(context.Background(), CallRequest{
		Messages:     []types.Message{types.UserText("sales today?")},
		ToolsEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StopToolUse, resp.StopReason)

	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "tu_1", uses[0].ID)
	assert.Equal(t, "get_transactions", uses[0].Name)
	assert.Equal(t, "20250301", uses[0].Input["date_from"])
}

func TestCallMapsUnknownStopReasonToEndTurn(t *testing.T) {
	c := testAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stop_reason":"max_tokens","content":[{"type":"text","text":"cut off"}]}`)
	})

	resp, err := c.Call(context.Background(), CallRequest{
		Messages: []types.Message{types.UserText("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StopEndTurn, resp.StopReason)
}

func TestCallSurfacesAPIError(t *testing.T) {
	c := testAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := c.Call(context.Background(), CallRequest{
		Messages: []types.Message{types.UserText("hi")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "slow down")
}
