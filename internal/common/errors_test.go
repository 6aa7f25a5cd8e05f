package common

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestAppError_Unwrap(t *testing.T) {
	err := NewAppError("GUARDRAIL", "rejected", ErrGuardrail)
	if !errors.Is(err, ErrGuardrail) {
		t.Error("AppError must unwrap to its cause")
	}
	if got := err.Error(); got != "GUARDRAIL: rejected: guardrail rejection" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInvalidArgumentError_Code(t *testing.T) {
	err := InvalidArgumentError("bad input")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestFailedPreconditionWithDetails(t *testing.T) {
	err := FailedPreconditionWithDetails("too many tests detected", map[string]any{
		"detected_count":   21,
		"maximum_allowed":  20,
		"confidence_score": float32(0.95),
		"flagged":          []string{"Glucose", "Sodium"},
	})

	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %v, want FailedPrecondition", st.Code())
	}
	if st.Message() != "too many tests detected" {
		t.Errorf("message = %q", st.Message())
	}

	details := st.Details()
	if len(details) != 1 {
		t.Fatalf("got %d detail payloads, want 1", len(details))
	}
	s, ok := details[0].(*structpb.Struct)
	if !ok {
		t.Fatalf("detail payload is %T, want *structpb.Struct", details[0])
	}
	m := s.AsMap()
	if m["maximum_allowed"] != float64(20) {
		t.Errorf("maximum_allowed = %v", m["maximum_allowed"])
	}
	flagged, _ := m["flagged"].([]any)
	if len(flagged) != 2 || flagged[0] != "Glucose" {
		t.Errorf("flagged = %v", m["flagged"])
	}
}

func TestFailedPreconditionWithDetails_NoDetails(t *testing.T) {
	err := FailedPreconditionWithDetails("no valid tests detected", nil)
	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Errorf("code = %v", st.Code())
	}
	if len(st.Details()) != 0 {
		t.Errorf("expected no detail payloads, got %d", len(st.Details()))
	}
}
