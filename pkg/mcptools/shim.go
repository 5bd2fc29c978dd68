package mcptools

import "encoding/json"

// tryParseJSONArray attempts to parse s as a JSON array. It reports ok=false
// for anything that isn't valid JSON or doesn't decode to an array, so the
// caller can leave non-array strings alone for schema validation to reject.
func tryParseJSONArray(s string) ([]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return arr, true
}
