// Package jsonx decodes JSON embedded in model responses. Model output is
// untrusted text: it may wrap JSON in prose or markdown fences, or contain no
// JSON at all, so every decode offers a caller-supplied fallback.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON indicates the response contained no decodable JSON value.
var ErrNoJSON = errors.New("no JSON value found in response")

// Object returns the outermost JSON object embedded in the response.
func Object(response string) (string, bool) {
	return slice(response, '{', '}')
}

// Array returns the outermost JSON array embedded in the response.
func Array(response string) (string, bool) {
	return slice(response, '[', ']')
}

// slice returns the substring from the first open delimiter to the last
// matching close delimiter.
func slice(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// DecodeObject extracts and unmarshals the outermost JSON object in the
// response into out.
func DecodeObject(response string, out any) error {
	raw, ok := Object(response)
	if !ok {
		return fmt.Errorf("%w (got %d chars)", ErrNoJSON, len(response))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal object: %w", err)
	}
	return nil
}

// DecodeArray extracts and unmarshals the outermost JSON array in the
// response into out.
func DecodeArray(response string, out any) error {
	raw, ok := Array(response)
	if !ok {
		return fmt.Errorf("%w (got %d chars)", ErrNoJSON, len(response))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal array: %w", err)
	}
	return nil
}

// ObjectOr decodes the response into a T, returning fallback on any parse
// failure. The boolean reports whether the fallback was used.
func ObjectOr[T any](response string, fallback T) (T, bool) {
	var out T
	if err := DecodeObject(response, &out); err != nil {
		return fallback, true
	}
	return out, false
}

// ArrayOr decodes the response into a []T, returning fallback on any parse
// failure or an empty array. The boolean reports whether the fallback was
// used.
func ArrayOr[T any](response string, fallback []T) ([]T, bool) {
	var out []T
	if err := DecodeArray(response, &out); err != nil {
		return fallback, true
	}
	if len(out) == 0 {
		return fallback, true
	}
	return out, false
}
