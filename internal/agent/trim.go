package agent

import "github.com/barkeephq/barkeep/pkg/types"

// resultCompactLimit bounds each historical tool_result payload carried into
// the next request. Live tool output inside a run is never compacted; only
// history written back to the store is.
const resultCompactLimit = 2000

// Trim bounds a finished conversation before it is stored: tool results are
// compacted, the window is cut to the last maxMessages, and oldest messages
// are dropped until the estimated size fits maxChars. Repair runs after every
// cut so the stored history never opens with a broken tool-use pair.
//
// At least one user/assistant exchange survives trimming regardless of
// maxChars.
func Trim(msgs []types.Message, maxMessages, maxChars int) []types.Message {
	msgs = compactResults(msgs)

	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = Repair(msgs[len(msgs)-maxMessages:])
	}

	for len(msgs) > 2 && totalSize(msgs) > maxChars {
		msgs = Repair(msgs[1:])
	}

	return msgs
}

// compactResults applies Compact to every tool_result payload, copying
// messages so stored history never aliases the caller's slices.
func compactResults(msgs []types.Message) []types.Message {
	out := make([]types.Message, len(msgs))
	for i, m := range msgs {
		blocks := make([]types.ContentBlock, len(m.Content))
		copy(blocks, m.Content)
		for j, b := range blocks {
			if b.Type == types.BlockToolResult {
				blocks[j].Content = Compact(b.Content, resultCompactLimit)
			}
		}
		out[i] = types.Message{Role: m.Role, Content: blocks}
	}
	return out
}

func totalSize(msgs []types.Message) int {
	total := 0
	for _, m := range msgs {
		total += m.Size()
	}
	return total
}
