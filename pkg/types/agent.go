package types

// StopReason indicates why the model stopped generating
type StopReason string

const (
	StopToolUse StopReason = "tool_use"
	StopEndTurn StopReason = "end_turn"
)

// ModelResponse is one completed model turn
type ModelResponse struct {
	StopReason StopReason     `json:"stop_reason"`
	Content    []ContentBlock `json:"content"`
}

// ToolUses extracts the tool_use blocks from the response, in emission order
func (r *ModelResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// TextContent concatenates all text blocks in the response
func (r *ModelResponse) TextContent() string {
	var out string
	for _, b := range r.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolCall is a tool invocation request extracted from a tool_use block
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// OutcomeKind identifies the kind of a tool outcome
type OutcomeKind string

const (
	OutcomeText         OutcomeKind = "text"
	OutcomeTextArtifact OutcomeKind = "text_artifact"
	OutcomeError        OutcomeKind = "error"
)

// ToolOutcome is the result of dispatching one tool call. It is a tagged
// union: Artifact is only meaningful for OutcomeTextArtifact, and Text holds
// the error message for OutcomeError.
type ToolOutcome struct {
	Kind     OutcomeKind
	Text     string
	Artifact []byte
}

// TextOutcome creates a plain text outcome
func TextOutcome(text string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeText, Text: text}
}

// ArtifactOutcome creates an outcome carrying a binary artifact alongside text
func ArtifactOutcome(text string, artifact []byte) ToolOutcome {
	return ToolOutcome{Kind: OutcomeTextArtifact, Text: text, Artifact: artifact}
}

// ErrorOutcome creates an error outcome
func ErrorOutcome(message string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeError, Text: message}
}

// IsError reports whether the outcome is an error
func (o ToolOutcome) IsError() bool {
	return o.Kind == OutcomeError
}

// ToolDef describes one dispatchable tool for the model's tool schema
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}
