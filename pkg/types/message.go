// Package types defines core data structures for Barkeep
package types

import (
	"encoding/json"
	"fmt"
)

// Role represents the role of a message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType identifies the kind of a content block
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a message's content. It is a tagged union:
// exactly one of the Text, ToolUse or ToolResult field groups is meaningful,
// selected by Type. The JSON shape matches the Anthropic Messages API.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Type == BlockText
	Text string `json:"text,omitempty"`

	// Type == BlockToolUse (assistant-authored)
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// Type == BlockToolResult (user-authored)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// TextBlock creates a text content block
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock creates a tool_use content block
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock creates a tool_result content block
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content}
}

// Message represents one turn in a conversation
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserText creates a user message containing a single text block
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantText creates an assistant message containing a single text block
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// HasToolUse reports whether the message contains at least one tool_use block
func (m Message) HasToolUse() bool {
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// HasToolResult reports whether the message contains at least one tool_result block
func (m Message) HasToolResult() bool {
	for _, b := range m.Content {
		if b.Type == BlockToolResult {
			return true
		}
	}
	return false
}

// TextContent concatenates all text blocks in the message
func (m Message) TextContent() string {
	var out string
	for _, b := range m.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// Size estimates the character footprint of the message for budget accounting.
// Tool inputs are counted at their JSON-encoded length.
func (m Message) Size() int {
	total := 0
	for _, b := range m.Content {
		total += len(b.Text) + len(b.Content)
		if b.Input != nil {
			if data, err := json.Marshal(b.Input); err == nil {
				total += len(data)
			}
		}
	}
	return total
}

// Validate checks the structural sanity of the message
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("invalid role: %q", m.Role)
	}
	for i, b := range m.Content {
		switch b.Type {
		case BlockText, BlockToolUse, BlockToolResult:
		default:
			return fmt.Errorf("block %d: invalid type %q", i, b.Type)
		}
		if b.Type == BlockToolUse && (b.ID == "" || b.Name == "") {
			return fmt.Errorf("block %d: tool_use requires id and name", i)
		}
		if b.Type == BlockToolResult && b.ToolUseID == "" {
			return fmt.Errorf("block %d: tool_result requires tool_use_id", i)
		}
	}
	return nil
}
