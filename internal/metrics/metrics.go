// Package metrics defines the Prometheus collectors shared across drishti.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	// ProxyRequestsTotal counts proxied API requests by route and HTTP status.
	ProxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_proxy_requests_total",
		Help: "Total proxied API requests, partitioned by route and status.",
	}, []string{"route", "status"})

	// ProxyLatency observes upstream round-trip time per route.
	ProxyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drishti_proxy_latency_seconds",
		Help:    "Latency of proxied API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// VisionAttemptsTotal counts vision upstream attempts by outcome kind.
	VisionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_vision_attempts_total",
		Help: "Vision analysis attempts, partitioned by outcome.",
	}, []string{"outcome"})

	// VisionBackoffsTotal counts backoff delays taken before a vision retry.
	VisionBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drishti_vision_backoffs_total",
		Help: "Backoff delays taken before retrying a vision request.",
	})

	// SynthesisFallbacksTotal counts utterances re-synthesized by the fallback engine.
	SynthesisFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drishti_tts_fallbacks_total",
		Help: "Utterances that fell back to the secondary synthesizer.",
	})

	// VoiceTransitionsTotal counts coordinator state transitions.
	VoiceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_voice_transitions_total",
		Help: "Speech coordinator state transitions.",
	}, []string{"from", "to"})

	// RecognitionFailuresTotal counts failed listen attempts by reason.
	RecognitionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_recognition_failures_total",
		Help: "Failed recognition attempts, partitioned by reason.",
	}, []string{"reason"})

	// ActiveSessions tracks open session channels.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drishti_active_sessions",
		Help: "Number of open client sessions.",
	})

	// ActionsTotal counts session control activations.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_actions_total",
		Help: "Session control activations, partitioned by control and result.",
	}, []string{"control", "result"})

	grpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drishti_grpc_requests_total",
		Help: "Total gRPC requests, partitioned by method and status code.",
	}, []string{"method", "code"})

	grpcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drishti_grpc_request_duration_seconds",
		Help:    "gRPC request durations, partitioned by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// UnaryServerInterceptor records a counter and a latency histogram for every
// unary gRPC call.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		grpcRequestsTotal.WithLabelValues(info.FullMethod, st.Code().String()).Inc()
		grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		return resp, err
	}
}
