package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the uniform JSON shape returned by the backend:
//
//	{"success": true, "data": {...}, "error": "...", "message": "..."}
//
// Success is tri-state on the wire; only an explicit false is a logical
// failure. Data is kept raw and decoded by key on demand.
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Rejected reports whether the backend explicitly set success=false.
func (e *Envelope) Rejected() bool {
	return e.Success != nil && !*e.Success
}

// failureMessage picks the human-readable cause of a failure.
func (e *Envelope) failureMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return defaultErrorMessage
}

// Field decodes data[key] into out. It reports false when data is absent
// or null or has no such key. A data value that is not an object is a
// shape error.
func (e *Envelope) Field(key string, out interface{}) (bool, error) {
	if isNull(e.Data) {
		return false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &fields); err != nil {
		return false, fmt.Errorf("%w: data is not an object", ErrUnexpectedShape)
	}

	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: decoding data.%s: %v", ErrUnexpectedShape, key, err)
	}
	return true, nil
}

// DecodeData decodes the whole data member into out.
func (e *Envelope) DecodeData(out interface{}) error {
	if isNull(e.Data) {
		return fmt.Errorf("%w: missing data", ErrUnexpectedShape)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("%w: decoding data: %v", ErrUnexpectedShape, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// unwrapList decodes data[key] as a list. An absent key yields an empty,
// non-nil slice so callers can range over it unconditionally.
func unwrapList[T any](env *Envelope, key string) ([]T, error) {
	items := []T{}
	found, err := env.Field(key, &items)
	if err != nil {
		return nil, err
	}
	if !found || items == nil {
		return []T{}, nil
	}
	return items, nil
}

// unwrapOne decodes data[key] as a single record. The key is required.
func unwrapOne[T any](env *Envelope, key string) (*T, error) {
	var item T
	found, err := env.Field(key, &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: missing data.%s", ErrUnexpectedShape, key)
	}
	return &item, nil
}

// unwrapOptional decodes data[key] when present and returns nil otherwise.
func unwrapOptional[T any](env *Envelope, key string) (*T, error) {
	var item T
	found, err := env.Field(key, &item)
	if err != nil || !found {
		return nil, err
	}
	return &item, nil
}
