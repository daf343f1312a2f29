package grpc

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/transport"
)

type fakeBackend struct {
	err error
}

func (b *fakeBackend) AnalyzeImage(_ context.Context, req *message.VisionRequest) (*message.VisionResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &message.VisionResponse{Text: "A door ahead. Prompt: " + req.Prompt}, nil
}

func (b *fakeBackend) Synthesize(_ context.Context, req *message.SpeechRequest) (*message.SpeechResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &message.SpeechResponse{Audio: "UklGRg==", ContentType: "audio/wav", Engine: "fake"}, nil
}

func (b *fakeBackend) Transcribe(_ context.Context, req *message.TranscribeRequest) (*message.TranscribeResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &message.TranscribeResponse{Text: string(req.Audio), Language: req.Language}, nil
}

func (b *fakeBackend) Languages() []message.LanguageInfo { return nil }

func (b *fakeBackend) Preference(context.Context, string) (*message.LanguagePreference, error) {
	return nil, nil
}

func (b *fakeBackend) SetPreference(context.Context, string, *message.LanguagePreference) (*message.LanguagePreference, error) {
	return nil, nil
}

func (b *fakeBackend) RunSession(context.Context, transport.SessionConn) error { return nil }

func dial(t *testing.T, backend transport.Backend) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	tr := New(0)
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = tr.serve(ctx, lis, backend)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-served
	})
	return conn
}

func TestAnalyzeImage(t *testing.T) {
	client := NewClient(dial(t, &fakeBackend{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.AnalyzeImage(ctx, &message.VisionRequest{Image: "aGk=", Prompt: "Describe"})
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if resp.Text != "A door ahead. Prompt: Describe" {
		t.Fatalf("Text = %q", resp.Text)
	}
}

func TestTranscribeRoundTripsBytes(t *testing.T) {
	client := NewClient(dial(t, &fakeBackend{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Transcribe(ctx, &message.TranscribeRequest{Audio: []byte("namaste"), Language: "hi-IN"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if resp.Text != "namaste" || resp.Language != "hi-IN" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		status int
		code   codes.Code
	}{
		{http.StatusBadRequest, codes.InvalidArgument},
		{http.StatusUnauthorized, codes.Unauthenticated},
		{http.StatusTooManyRequests, codes.ResourceExhausted},
		{http.StatusServiceUnavailable, codes.Unavailable},
		{http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range cases {
		backend := &fakeBackend{err: message.Errorf(tc.status, "failed with %d", tc.status)}
		client := NewClient(dial(t, backend))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		_, err := client.Synthesize(ctx, &message.SpeechRequest{Text: "hi"})
		cancel()
		if got := status.Code(err); got != tc.code {
			t.Errorf("status %d: code = %v, want %v", tc.status, got, tc.code)
		}
	}
}

func TestHealthServing(t *testing.T) {
	conn := dial(t, &fakeBackend{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Status = %v", resp.Status)
	}
}
