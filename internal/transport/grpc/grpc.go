// Package grpc implements the gRPC transport for drishti.
//
// This transport exposes the drishti.v1.Assistant service with unary
// AnalyzeImage, Synthesize and Transcribe calls for native clients and
// edge devices. Payloads use a JSON codec over the message package types;
// clients select it with grpc.CallContentSubtype("json").
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/metrics"
	"github.com/nadzzz/drishti/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "drishti.v1.Assistant"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and serves requests from the backend.
func (t *Transport) Listen(ctx context.Context, backend transport.Backend) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	slog.Info("grpc transport listening", "port", t.port)
	return t.serve(ctx, lis, backend)
}

func (t *Transport) serve(ctx context.Context, lis net.Listener, backend transport.Backend) error {
	t.server = grpc.NewServer(grpc.UnaryInterceptor(metrics.UnaryServerInterceptor()))
	t.server.RegisterService(&serviceDesc, &server{backend: backend})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(t.server, hs)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		hs.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// AssistantServer is the server API of drishti.v1.Assistant.
type AssistantServer interface {
	AnalyzeImage(context.Context, *message.VisionRequest) (*message.VisionResponse, error)
	Synthesize(context.Context, *message.SpeechRequest) (*message.SpeechResponse, error)
	Transcribe(context.Context, *message.TranscribeRequest) (*message.TranscribeResponse, error)
}

// server adapts the backend, translating API errors to gRPC statuses.
type server struct {
	backend transport.Backend
}

func (s *server) AnalyzeImage(ctx context.Context, req *message.VisionRequest) (*message.VisionResponse, error) {
	resp, err := s.backend.AnalyzeImage(ctx, req)
	return resp, toStatus(err)
}

func (s *server) Synthesize(ctx context.Context, req *message.SpeechRequest) (*message.SpeechResponse, error) {
	resp, err := s.backend.Synthesize(ctx, req)
	return resp, toStatus(err)
}

func (s *server) Transcribe(ctx context.Context, req *message.TranscribeRequest) (*message.TranscribeResponse, error) {
	resp, err := s.backend.Transcribe(ctx, req)
	return resp, toStatus(err)
}

// toStatus maps an API error's HTTP status to the matching gRPC code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *message.APIError
	if !errors.As(err, &apiErr) {
		return status.Error(codes.Internal, err.Error())
	}

	code := codes.Internal
	switch apiErr.Status {
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusTooManyRequests:
		code = codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	}
	return status.Error(code, apiErr.Message)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeImage", Handler: unary("AnalyzeImage", AssistantServer.AnalyzeImage)},
		{MethodName: "Synthesize", Handler: unary("Synthesize", AssistantServer.Synthesize)},
		{MethodName: "Transcribe", Handler: unary("Transcribe", AssistantServer.Transcribe)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drishti/v1/assistant",
}

// unary builds a method handler that decodes Req and calls method on the
// registered server, running the configured interceptor.
func unary[Req, Resp any](name string, method func(AssistantServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return method(srv.(AssistantServer), ctx, req.(*Req))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, call)
	}
}
