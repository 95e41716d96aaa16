// Package model provides the LLM client consumed by the agent engine
package model

import (
	"context"

	"github.com/barkeephq/barkeep/pkg/types"
)

// CallRequest is one model invocation
type CallRequest struct {
	System       string
	Tools        []types.ToolDef
	Messages     []types.Message
	ToolsEnabled bool
	MaxTokens    int
}

// Client generates model completions. Errors are fatal to the caller's run;
// retry and backoff live outside this interface.
type Client interface {
	Call(ctx context.Context, req CallRequest) (*types.ModelResponse, error)
}
