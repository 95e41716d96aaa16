// Package tools implements the agent's tool dispatcher and its fixed tool set
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/pkg/types"
)

// Handler executes one tool call. A returned error becomes an error outcome;
// it never propagates past the dispatcher.
type Handler func(ctx context.Context, input map[string]any) (types.ToolOutcome, error)

// Tool is one dispatchable capability
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Dispatcher maps tool calls to outcomes. A failed or disallowed call yields
// an error outcome, never a Go error: tool failures must become conversation
// content the model can react to.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, input map[string]any) types.ToolOutcome
	Schema() []types.ToolDef
}

// Registry is a Dispatcher over a fixed allow-list of tools. Registration
// happens at construction time; dispatch fails closed for any other name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *zap.Logger
}

// NewRegistry creates an empty tool registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool to the allow-list. Returns an error if the name is
// empty or already taken.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers a tool and panics on error. For static registration
// at construction time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Names returns all registered tool names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the tool definitions for the model's tool schema
func (r *Registry) Schema() []types.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.ToolDef, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, types.ToolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch executes a tool call and absorbs every failure mode into the
// returned outcome.
func (r *Registry) Dispatch(ctx context.Context, name string, input map[string]any) (outcome types.ToolOutcome) {
	r.mu.RLock()
	tool := r.tools[name]
	r.mu.RUnlock()

	if tool == nil {
		r.logger.Warn("tool not allowed", zap.String("tool", name))
		return types.ErrorOutcome(fmt.Sprintf("tool not allowed: %s", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", rec),
			)
			outcome = types.ErrorOutcome(fmt.Sprintf("tool execution failed: %v", rec))
		}
	}()

	r.logger.Debug("executing tool", zap.String("tool", name))
	result, err := tool.Handler(ctx, input)
	if err != nil {
		r.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		return types.ErrorOutcome(fmt.Sprintf("tool execution failed: %v", err))
	}
	return result
}
