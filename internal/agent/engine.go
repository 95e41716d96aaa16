package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/conversation"
	"github.com/barkeephq/barkeep/internal/model"
	"github.com/barkeephq/barkeep/internal/tools"
	"github.com/barkeephq/barkeep/pkg/telemetry"
	"github.com/barkeephq/barkeep/pkg/types"
)

// ErrEmptyPrompt is returned by Run when the prompt is blank
var ErrEmptyPrompt = errors.New("prompt is empty")

// summarizePrompt is the synthetic user turn sent when the iteration budget
// runs out while the model is still requesting tools.
const summarizePrompt = "You have reached the maximum number of tool calls for this request. " +
	"Summarize what you have found so far and note anything you could not check."

// exhaustedFallback is returned when even the summarization call fails
const exhaustedFallback = "Reached maximum iterations without completing. Please try a simpler question."

// Engine drives the bounded model/tool dialogue for one user at a time.
// Within a run everything is sequential: each model call's outcome decides
// the next call's input, and tool calls execute in the order the model
// emitted them. Runs for different users may proceed concurrently; the
// injected stores carry the per-user locking.
type Engine struct {
	model         model.Client
	tools         tools.Dispatcher
	conversations conversation.Store
	logger        *zap.Logger
	maxMessages   int
	maxChars      int
	now           func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithHistoryLimits overrides the stored-history bounds
func WithHistoryLimits(maxMessages, maxChars int) Option {
	return func(e *Engine) {
		e.maxMessages = maxMessages
		e.maxChars = maxChars
	}
}

// WithClock overrides the engine's clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an orchestration engine
func NewEngine(client model.Client, dispatcher tools.Dispatcher, store conversation.Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		model:         client,
		tools:         dispatcher,
		conversations: store,
		logger:        logger,
		maxMessages:   types.DefaultMaxMessages,
		maxChars:      types.DefaultMaxChars,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunRequest is one user prompt to execute
type RunRequest struct {
	UserID        string
	Prompt        string
	MaxIterations int    // 0 means types.DefaultMaxIterations
	Source        Source // selects the system prompt's formatting guidance
}

// RunResult is the outcome of a completed run
type RunResult struct {
	Text      string
	Artifacts [][]byte // binary payloads in tool production order
}

// Run executes the orchestration loop for one prompt.
//
// Quota accounting is the caller's concern: Check and Record wrap this entry
// point. Run mutates the user's stored conversation only when it reaches a
// terminal state; a model failure mid-run leaves the store untouched.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = types.DefaultMaxIterations
	}

	runID := uuid.New().String()
	ctx, span := telemetry.StartRunSpan(ctx, req.UserID, runID,
		attribute.String(telemetry.KeySource, string(req.Source)))
	defer span.End()

	logger := e.logger.With(
		zap.String("user_id", req.UserID),
		zap.String("run_id", runID),
	)
	logger.Info("agent run started",
		zap.Int("max_iterations", maxIterations),
		zap.String("source", string(req.Source)),
	)

	stored, err := e.conversations.Get(ctx, req.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	msgs := append(Repair(stored), types.UserText(req.Prompt))
	system := SystemPrompt(req.Source, e.now())
	schema := e.tools.Schema()

	var artifacts [][]byte
	var resultText string

	for iteration := 0; ; {
		resp, err := e.callModel(ctx, system, schema, msgs, true, iteration)
		if err != nil {
			telemetry.RecordError(span, err)
			logger.Error("model call failed", zap.Int("iteration", iteration), zap.Error(err))
			return nil, err
		}

		if resp.StopReason != types.StopToolUse {
			resultText = resp.TextContent()
			msgs = append(msgs, types.AssistantText(resultText))
			telemetry.SetStopReason(span, "done")
			break
		}

		results := e.dispatchAll(ctx, logger, resp.ToolUses(), &artifacts)
		msgs = append(msgs,
			types.Message{Role: types.RoleAssistant, Content: resp.Content},
			types.Message{Role: types.RoleUser, Content: results},
		)

		iteration++
		if iteration == maxIterations {
			msgs = append(msgs, types.UserText(summarizePrompt))
			resultText = e.summarize(ctx, logger, system, msgs)
			msgs = append(msgs, types.AssistantText(resultText))
			telemetry.SetStopReason(span, "iterations_exhausted")
			break
		}
	}

	trimmed := Trim(msgs, e.maxMessages, e.maxChars)
	if err := e.conversations.Put(ctx, req.UserID, trimmed); err != nil {
		// The run already produced its answer; losing one window of
		// history is preferable to failing the whole run here.
		logger.Error("storing conversation failed", zap.Error(err))
	}

	telemetry.SetArtifactCount(span, len(artifacts))
	logger.Info("agent run completed",
		zap.Int("history_messages", len(trimmed)),
		zap.Int("artifacts", len(artifacts)),
	)
	return &RunResult{Text: resultText, Artifacts: artifacts}, nil
}

// callModel performs one model turn under a telemetry span
func (e *Engine) callModel(ctx context.Context, system string, schema []types.ToolDef, msgs []types.Message, toolsEnabled bool, iteration int) (*types.ModelResponse, error) {
	callCtx, span := telemetry.StartModelCallSpan(ctx, iteration, toolsEnabled)
	defer span.End()

	resp, err := e.model.Call(callCtx, model.CallRequest{
		System:       system,
		Tools:        schema,
		Messages:     msgs,
		ToolsEnabled: toolsEnabled,
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

// dispatchAll executes the requested tools sequentially, in emission order,
// converting each outcome into a tool_result block. Artifacts accumulate in
// production order.
func (e *Engine) dispatchAll(ctx context.Context, logger *zap.Logger, uses []types.ContentBlock, artifacts *[][]byte) []types.ContentBlock {
	results := make([]types.ContentBlock, 0, len(uses))
	for _, use := range uses {
		toolCtx, span := telemetry.StartToolSpan(ctx, use.Name)
		outcome := e.tools.Dispatch(toolCtx, use.Name, use.Input)
		telemetry.SetToolOutcome(span, string(outcome.Kind))
		span.End()

		if outcome.IsError() {
			logger.Warn("tool returned error",
				zap.String("tool", use.Name),
				zap.String("message", outcome.Text),
			)
		}
		if len(outcome.Artifact) > 0 {
			*artifacts = append(*artifacts, outcome.Artifact)
		}
		results = append(results, types.ToolResultBlock(use.ID, outcome.Text))
	}
	return results
}

// summarize issues the final tools-disabled call on the exhaustion path.
// Disabling tools is what stops the model from re-extending the loop; a
// failure here degrades to a fixed fallback rather than failing the run.
func (e *Engine) summarize(ctx context.Context, logger *zap.Logger, system string, msgs []types.Message) string {
	callCtx, span := telemetry.StartSummarizeSpan(ctx)
	defer span.End()

	resp, err := e.model.Call(callCtx, model.CallRequest{
		System:       system,
		Messages:     msgs,
		ToolsEnabled: false,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Warn("summarization call failed", zap.Error(err))
		return exhaustedFallback
	}
	if text := resp.TextContent(); text != "" {
		return text
	}
	return exhaustedFallback
}

// ClearConversation drops the stored history for a user
func (e *Engine) ClearConversation(ctx context.Context, userID string) error {
	return e.conversations.Clear(ctx, userID)
}
