package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/polyinline/internal/ir"
)

// marshalCallees converts callee records to canonical JSON TEXT for storage.
func marshalCallees(callees []ir.CalleeRecord) (string, error) {
	list := make([]any, len(callees))
	for i, c := range callees {
		list[i] = map[string]any{
			"name":      c.Name,
			"size":      c.Size,
			"inlinable": c.Inlinable,
		}
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal callees: %w", err)
	}
	return string(data), nil
}

// unmarshalCallees parses canonical JSON TEXT back to callee records.
// Returns an empty (non-nil) slice for "[]".
func unmarshalCallees(data string) ([]ir.CalleeRecord, error) {
	callees := []ir.CalleeRecord{}
	if data == "" {
		return callees, nil
	}
	if err := json.Unmarshal([]byte(data), &callees); err != nil {
		return nil, fmt.Errorf("unmarshal callees: %w", err)
	}
	return callees, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
