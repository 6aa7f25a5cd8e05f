package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrExtraction    = errors.New("extraction failed")
	ErrNormalization = errors.New("no tests normalized")
	ErrGuardrail     = errors.New("guardrail rejection")
	ErrSummary       = errors.New("summary generation failed")
	ErrOracle        = errors.New("oracle call failed")
	ErrInternal      = errors.New("internal error")
	ErrDatabase      = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// FailedPreconditionWithDetails builds a gRPC status for a guardrail
// rejection, attaching the machine-readable details map as a
// structpb.Struct so automated callers can triage without parsing the
// message text. Detail values that cannot be represented are dropped.
func FailedPreconditionWithDetails(message string, details map[string]any) error {
	st := status.New(codes.FailedPrecondition, message)
	if len(details) == 0 {
		return st.Err()
	}
	s, err := structpb.NewStruct(sanitizeDetails(details))
	if err != nil {
		return st.Err()
	}
	if withDetails, dErr := st.WithDetails(s); dErr == nil {
		return withDetails.Err()
	}
	return st.Err()
}

// sanitizeDetails coerces values into structpb-representable types.
func sanitizeDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string, bool, float64, nil:
			out[k] = t
		case int:
			out[k] = float64(t)
		case int64:
			out[k] = float64(t)
		case float32:
			out[k] = float64(t)
		case []string:
			vals := make([]any, 0, len(t))
			for _, s := range t {
				vals = append(vals, s)
			}
			out[k] = vals
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}
