package formatter

import (
	"fmt"
	"strings"
)

// MissingRequiredFieldError lists every mandatory claim without a value.
type MissingRequiredFieldError struct {
	Fields []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// MalformedFieldError is returned when a structured field cannot be decoded.
type MalformedFieldError struct {
	Field string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %s: %v", e.Field, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

type InvalidNumberError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("field %s is not a number: %q", e.Field, e.Value)
}

func (e *InvalidNumberError) Unwrap() error {
	return e.Err
}
