package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/medtext/labguard/internal/guardrail"
	"github.com/medtext/labguard/internal/llm"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/report"
)

type stubOracle struct{}

func (stubOracle) ExtractText(ctx context.Context, imageB64 string) (llm.OCRResult, error) {
	return llm.OCRResult{}, nil
}

func (stubOracle) Summarize(ctx context.Context, tests []report.NormalizedTest) (llm.Summary, error) {
	return llm.Summary{Summary: "Results reviewed.", Explanations: []string{"All values checked."}}, nil
}

func (stubOracle) ValidateExtraction(ctx context.Context, originalInput string, extractedTests []string) (bool, error) {
	return true, nil
}

func dialTestServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	normalizer := normalize.NewNormalizer(logger)
	guard := guardrail.NewValidator(guardrail.Config{}, stubOracle{}, logger)
	pipe := pipeline.New(logger, normalizer, guard, stubOracle{}, stubOracle{})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewService(pipe, logger))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invokeProcess(t *testing.T, conn *grpc.ClientConn, inputType, data string) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{
		"input_type": inputType,
		"data":       data,
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp := new(structpb.Struct)
	err = conn.Invoke(ctx, processFullMethod, req, resp)
	return resp, err
}

func TestProcess_OverWire(t *testing.T) {
	conn := dialTestServer(t)

	resp, err := invokeProcess(t, conn, "text", "Hemoglobin 14.5 g/dL (Normal), WBC 7500 /uL (Normal)")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	fields := resp.GetFields()
	if got := fields["status"].GetStringValue(); got != "ok" {
		t.Errorf("status = %q, want %q", got, "ok")
	}
	tests := fields["tests"].GetListValue().GetValues()
	if len(tests) != 2 {
		t.Fatalf("tests = %d, want 2", len(tests))
	}
	if got := tests[0].GetStructValue().GetFields()["name"].GetStringValue(); got != "Hemoglobin" {
		t.Errorf("tests[0].name = %q, want %q", got, "Hemoglobin")
	}
	if fields["summary"].GetStringValue() == "" {
		t.Error("summary is empty")
	}
}

func TestProcess_OverWire_RejectionStatus(t *testing.T) {
	conn := dialTestServer(t)

	_, err := invokeProcess(t, conn, "text", "Glucose 15000 mg/dL")
	if err == nil {
		t.Fatal("Process succeeded, want FailedPrecondition")
	}
	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
	if want := "Glucose value outside biologically possible range"; st.Message() != want {
		t.Errorf("message = %q, want %q", st.Message(), want)
	}

	var detail *structpb.Struct
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			detail = s
			break
		}
	}
	if detail == nil {
		t.Fatal("status carries no struct detail")
	}
	df := detail.GetFields()
	if got := df["test"].GetStringValue(); got != "Glucose" {
		t.Errorf("detail test = %q, want %q", got, "Glucose")
	}
	if df["value"].GetNumberValue() != 15000 {
		t.Errorf("detail value = %v, want 15000", df["value"].GetNumberValue())
	}
}

func TestProcess_OverWire_InvalidInput(t *testing.T) {
	conn := dialTestServer(t)

	_, err := invokeProcess(t, conn, "audio", "whatever")
	if err == nil {
		t.Fatal("Process succeeded, want FailedPrecondition")
	}
	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
}
