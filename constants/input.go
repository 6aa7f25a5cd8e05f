package constants

import "strings"

// InputType identifies the payload shape of a processing request.
type InputType string

const (
	InputTypeText  InputType = "text"  // data is literal report text
	InputTypeImage InputType = "image" // data is base64-encoded image bytes
)

// InputTypes holds the allowed input types for the pipeline entry point.
var InputTypes = []string{string(InputTypeText), string(InputTypeImage)}

// Input size limits enforced before any processing begins.
const (
	MinTextLength = 10
	MaxTextLength = 10000

	// MaxImageBytes bounds the estimated decoded size of a base64 payload.
	MaxImageBytes = 10 * 1024 * 1024
)

// NormalizeInputType lowercases and trims an input type string.
func NormalizeInputType(s string) InputType {
	return InputType(strings.ToLower(strings.TrimSpace(s)))
}

// IsSupportedInputType reports whether t is a known input type.
func IsSupportedInputType(t InputType) bool {
	return t == InputTypeText || t == InputTypeImage
}
