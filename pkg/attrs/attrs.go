// Package attrs inspects slog-style key-value attribute slices.
package attrs

// ExtractString extracts a string value from a key-value attribute slice
// formatted as [key1, value1, key2, value2, ...]. Returns "" if the key is
// absent or its value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(string); ok {
			return v
		}
	}
	return ""
}

// ExtractInt extracts an int value from a key-value attribute slice.
// Returns 0 if the key is absent or its value is not an int.
func ExtractInt(attrs []any, key string) int {
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(int); ok {
			return v
		}
	}
	return 0
}
