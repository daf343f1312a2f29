package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestUnaryServerInterceptorCounts verifies calls are counted by status code.
func TestUnaryServerInterceptorCounts(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/drishti.v1.Assistant/Test"}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.ResourceExhausted, "slow down")
	})
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %s, want ResourceExhausted", status.Code(err))
	}

	if got := testutil.ToFloat64(grpcRequestsTotal.WithLabelValues(info.FullMethod, "OK")); got != 1 {
		t.Fatalf("OK count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(grpcRequestsTotal.WithLabelValues(info.FullMethod, "ResourceExhausted")); got != 1 {
		t.Fatalf("ResourceExhausted count = %v, want 1", got)
	}
}
