package agent

import (
	"encoding/json"
	"fmt"
)

// compactSampleSize is how many records of an oversized JSON list survive
// compaction.
const compactSampleSize = 3

// Compact shrinks an oversized tool-result payload to roughly limit
// characters while preserving a record-count signal. Payloads at or under the
// limit pass through unchanged.
//
// JSON lists keep their first three records plus an annotation with the
// original count. JSON objects and unparseable text are hard-truncated with a
// marker. The returned string may exceed limit only by the fixed annotation.
func Compact(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return compactList(list, limit)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		// Re-serialize so the cut lands on canonical JSON, not the
		// original formatting.
		data, err := json.Marshal(obj)
		if err == nil {
			return truncate(string(data), limit)
		}
	}

	return truncate(text, limit)
}

func compactList(list []json.RawMessage, limit int) string {
	sample := list
	if len(sample) > compactSampleSize {
		sample = sample[:compactSampleSize]
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Sprintf("(%d records total)", len(list))
	}

	serialized := string(data)
	if len(serialized) > limit {
		serialized = serialized[:limit]
	}
	return fmt.Sprintf("%s (%d records total, showing first %d)", serialized, len(list), len(sample))
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "... (truncated)"
}
