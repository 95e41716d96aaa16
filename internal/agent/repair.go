// Package agent implements the tool-use orchestration engine: the bounded
// model/tool loop behind the /agent command and the dashboard chat.
package agent

import "github.com/barkeephq/barkeep/pkg/types"

// Repair restores a message history to a structurally valid state after
// front truncation. The Messages API requires every tool_result block to
// directly follow the assistant message carrying the matching tool_use, so a
// history must never open with either half of a broken pair.
//
// Repair drops leading messages until the sequence starts with a plain user
// message or is empty. It is idempotent.
func Repair(msgs []types.Message) []types.Message {
	for len(msgs) > 0 {
		first := msgs[0]

		// Orphaned tool results: the assistant turn that requested them
		// was truncated away.
		if first.Role == types.RoleUser && first.HasToolResult() {
			msgs = msgs[1:]
			continue
		}

		// Dangling tool use: the user turn with its results was truncated.
		if first.Role == types.RoleAssistant && first.HasToolUse() {
			msgs = msgs[1:]
			continue
		}

		break
	}
	return msgs
}
