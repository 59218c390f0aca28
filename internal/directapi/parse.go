package directapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// These endpoints rename fields between app releases, so every
// attribute is read through an alias list rather than a fixed struct.

func decodePayload(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// arrayAt tries each key path in order and returns the first array
// found. A path element indexes into nested objects.
func arrayAt(payload map[string]any, paths ...[]string) []any {
	for _, path := range paths {
		var node any = payload
		for _, key := range path {
			obj, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = obj[key]
		}
		if arr, ok := node.([]any); ok {
			return arr
		}
	}
	return nil
}

// pickString returns the first non-empty string among the aliases.
func pickString(m map[string]any, aliases ...string) string {
	for _, key := range aliases {
		if s, ok := m[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// pickPrice returns the first parseable positive amount among the
// aliases. Amounts arrive as numbers, numeric strings with currency
// noise, or {value:...} wrappers depending on the source and release.
func pickPrice(m map[string]any, aliases ...string) float64 {
	for _, key := range aliases {
		if v := asAmount(m[key]); v > 0 {
			return v
		}
	}
	return 0
}

func asAmount(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		cleaned := strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "").Replace(val)
		f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0
		}
		return f
	case map[string]any:
		for _, inner := range []string{"value", "amount", "price"} {
			if f := asAmount(val[inner]); f > 0 {
				return f
			}
		}
	}
	return 0
}
