// Package server exposes the pipeline over gRPC. The bindings are
// hand-rolled on structpb messages, so the daemon carries no generated
// code: requests and responses are JSON-shaped structs, and rejections
// surface as FailedPrecondition statuses with the details map attached.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/medtext/labguard/internal/common"
	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/report"
)

const processFullMethod = "/labguard.v1.LabGuard/Process"

// Service handles synchronous processing requests. The request struct
// carries "input_type" and "data"; the response is the compiled result.
type Service struct {
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

func NewService(pipe *pipeline.Pipeline, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pipe: pipe, logger: logger}
}

// Register attaches the service to a gRPC server.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}

// Process runs one report through the pipeline. Rejections of any kind
// come back as FailedPrecondition with the structured reason details.
func (s *Service) Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	in := report.Input{
		Type: fields["input_type"].GetStringValue(),
		Data: fields["data"].GetStringValue(),
	}
	s.logger.Info("server.process.start", "input_type", in.Type, "data_len", len(in.Data))

	out := s.pipe.Process(ctx, in)
	if !out.OK() {
		s.logger.Warn("server.process.rejected", "reason", out.Err.Reason)
		return nil, common.FailedPreconditionWithDetails(out.Err.Reason, out.Err.Details)
	}

	resp, err := structFromValue(out.Result)
	if err != nil {
		s.logger.Error("server.process.encode_failed", "error", err)
		return nil, common.InternalError("encode result")
	}
	s.logger.Info("server.process.ok", "tests", len(out.Result.Tests), "confidence", out.Result.Confidence)
	return resp, nil
}

// structFromValue converts any JSON-marshalable value into a
// structpb.Struct via its JSON form.
func structFromValue(v any) (*structpb.Struct, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "labguard.v1.LabGuard",
	HandlerType: (*interface {
		Process(context.Context, *structpb.Struct) (*structpb.Struct, error)
	})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Process", Handler: processHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: processFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.Process(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
