package common

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/medtext/labguard/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Validator collects field-level validation errors
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Error returns a combined error, nil when clean
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%s", v.ErrorMessage())
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// LengthBetween bounds the rune count of a string field.
func LengthBetween(min, max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		n := utf8.RuneCountInString(str)
		if n < min {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at least %d characters", min),
			}
		}
		if n > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

// OneOf restricts a string field to an allowed set.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if str == a {
				return nil
			}
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
		}
	}
}

// Base64Payload checks that a string is decodable base64 whose decoded
// size stays within maxBytes. Size is estimated before decoding so an
// oversized payload is rejected without allocating for it.
func Base64Payload(maxBytes int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		estimated := base64.StdEncoding.DecodedLen(len(str))
		if estimated > maxBytes {
			return &ValidationError{
				Field:   fieldName,
				Value:   fmt.Sprintf("%d bytes (estimated)", estimated),
				Message: fmt.Sprintf("decoded payload exceeds %d bytes", maxBytes),
			}
		}
		if _, err := base64.StdEncoding.DecodeString(str); err != nil {
			return &ValidationError{
				Field:   fieldName,
				Value:   "<binary>",
				Message: "must be valid base64",
			}
		}
		return nil
	}
}

// ValidateInputFormat rejects malformed requests before any processing
// begins: missing fields, unsupported input type, text length outside
// [MinTextLength, MaxTextLength], or an invalid/oversized image payload.
func ValidateInputFormat(inputType, data string) error {
	v := NewValidator()
	v.Field("input_type", inputType, Required)
	v.Field("data", data, Required)
	if v.HasErrors() {
		return ValidateAndReturnError(v)
	}

	t := constants.NormalizeInputType(inputType)
	v.Field("input_type", string(t), OneOf(constants.InputTypes...))
	if v.HasErrors() {
		return ValidateAndReturnError(v)
	}

	switch t {
	case constants.InputTypeText:
		v.Field("data", data, LengthBetween(constants.MinTextLength, constants.MaxTextLength))
	case constants.InputTypeImage:
		v.Field("data", data, Base64Payload(constants.MaxImageBytes))
	}
	return ValidateAndReturnError(v)
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
