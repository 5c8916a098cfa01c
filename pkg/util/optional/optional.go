// Package optional distinguishes an absent JSON field from one explicitly set,
// including explicit nulls for nullable fields.
package optional

import (
	"bytes"
	"encoding/json"
)

// Field holds a value together with whether it was present in the request.
type Field[T any] struct {
	Set   bool
	Value T
}

// Of returns a present field.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field present. An explicit null leaves Value at its
// zero value, which for pointer types means "clear".
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON encodes the wrapped value.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// Or returns the value when present, otherwise fallback.
func (f Field[T]) Or(fallback T) T {
	if f.Set {
		return f.Value
	}
	return fallback
}
