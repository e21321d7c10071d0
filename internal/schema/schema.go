// Package schema validates and normalises raw request bodies.
//
// Every parser takes the decoded JSON object and either returns typed,
// normalised input or a *ValidationError listing each violated field in the
// order the fields are declared.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrNotObject = errors.New("request body must be a JSON object")

var validate = validator.New()

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, ", ")
}

// Decode turns a request body into the untyped object the parsers consume.
// An empty body is treated as an empty object.
func Decode(body []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]any{}, nil
	}

	var raw map[string]any

	err := json.Unmarshal(body, &raw)
	if err != nil || raw == nil {
		return nil, ErrNotObject
	}

	return raw, nil
}

// collector accumulates violations for one payload.
type collector struct {
	raw        map[string]any
	violations []Violation

	// aborted is set by type errors; object-level rules are skipped then.
	aborted bool
}

func newCollector(raw map[string]any) *collector {
	if raw == nil {
		raw = map[string]any{}
	}
	return &collector{raw: raw}
}

func (c *collector) fail(field, message string) {
	c.violations = append(c.violations, Violation{Field: field, Message: message})
}

func (c *collector) err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: c.violations}
}

// str reads a string field. ok is false when the field is absent or invalid;
// type errors are recorded, absence is left to the caller.
func (c *collector) str(field string) (value string, present bool, ok bool) {
	v, exists := c.raw[field]
	if !exists || v == nil {
		return "", false, false
	}

	s, isString := v.(string)
	if !isString {
		c.fail(field, fmt.Sprintf("Field %q must be a string", field))
		c.aborted = true
		return "", true, false
	}

	return s, true, true
}

func (c *collector) requiredString(field string) (string, bool) {
	s, present, ok := c.str(field)
	if !present {
		c.fail(field, fmt.Sprintf("Field %q is required", field))
		return "", false
	}
	return s, ok
}

// nonBlank trims s and records a violation when nothing is left.
func (c *collector) nonBlank(field, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		c.fail(field, fmt.Sprintf("Field %q must be a non-empty string", field))
		return "", false
	}
	return s, true
}

// email validates the raw value before normalising it, so surrounding
// whitespace is rejected rather than silently stripped.
func (c *collector) email(field, s string) (string, bool) {
	if validate.Var(s, "required,email") != nil {
		c.fail(field, fmt.Sprintf("Field %q must be a valid email address", field))
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

func (c *collector) minLen(field, s string, n int) bool {
	if validate.Var(s, fmt.Sprintf("min=%d", n)) != nil {
		c.fail(field, fmt.Sprintf("Field %q must be at least %d characters", field, n))
		return false
	}
	return true
}

func (c *collector) optionalBool(field string) (*bool, bool) {
	v, exists := c.raw[field]
	if !exists || v == nil {
		return nil, true
	}

	b, ok := v.(bool)
	if !ok {
		c.fail(field, fmt.Sprintf("Field %q must be a boolean", field))
		c.aborted = true
		return nil, false
	}
	return &b, true
}
