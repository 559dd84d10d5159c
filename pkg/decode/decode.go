// Package decode converts loosely-typed maps and raw JSON into typed values.
package decode

import "encoding/json"

// FromMap converts a map into T by round-tripping through JSON.
func FromMap[T any](data map[string]any) (T, error) {
	var result T
	b, err := json.Marshal(data)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(b, &result)
	return result, err
}

// ToMap converts a typed value into a map by round-tripping through JSON.
// Field names follow the value's JSON tags.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	err = json.Unmarshal(b, &result)
	return result, err
}
