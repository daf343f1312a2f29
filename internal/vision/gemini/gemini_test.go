package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/vision"
)

const okBody = `{"candidates":[{"content":{"parts":[{"text":"A door is ahead."}]}}]}`

// upstream replies with the scripted statuses in order, then 200.
func upstream(t *testing.T, statuses []int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) && statuses[n-1] != http.StatusOK {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newClient(endpoint string, maxRetries int, threshold uint32) (*Client, *[]time.Duration) {
	c := New(config.VisionConfig{
		Gemini:  config.GeminiConfig{APIKey: "test-key", Model: "gemini-test", Endpoint: endpoint, Timeout: 5 * time.Second},
		Retry:   config.RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Second},
		Breaker: config.BreakerConfig{FailureThreshold: threshold, OpenTimeout: time.Minute},
	})
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

func request() vision.Request {
	return vision.Request{Image: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg", Prompt: "Describe"}
}

// TestAnalyzeRetriesRateLimit verifies two 429s cost two linear backoffs.
func TestAnalyzeRetriesRateLimit(t *testing.T) {
	srv, hits := upstream(t, []int{http.StatusTooManyRequests, http.StatusTooManyRequests}, `{"error":{"code":429}}`)
	c, delays := newClient(srv.URL, 2, 10)

	text, err := c.Analyze(context.Background(), request())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if text != "A door is ahead." {
		t.Fatalf("text = %q", text)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("upstream hits = %d, want 3", got)
	}
	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", *delays)
	}
}

// TestAnalyzeAuthFailureIsNotRetried verifies a 401 returns immediately.
func TestAnalyzeAuthFailureIsNotRetried(t *testing.T) {
	srv, hits := upstream(t, []int{http.StatusUnauthorized}, `{"error":{"code":401}}`)
	c, delays := newClient(srv.URL, 2, 10)

	_, err := c.Analyze(context.Background(), request())
	var verr *vision.Error
	if !errors.As(err, &verr) || verr.Kind != vision.KindAuth {
		t.Fatalf("Analyze() error = %v, want auth failure", err)
	}
	if err.Error() != "Vision API key invalid" {
		t.Fatalf("message = %q", err.Error())
	}
	if hits.Load() != 1 || len(*delays) != 0 {
		t.Fatalf("hits = %d, delays = %v; want 1 hit and no delays", hits.Load(), *delays)
	}
}

// TestAnalyzeInvalidKeyReason verifies Gemini's 400 API_KEY_INVALID maps to auth.
func TestAnalyzeInvalidKeyReason(t *testing.T) {
	body := `{"error":{"code":400,"status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`
	srv, hits := upstream(t, []int{http.StatusBadRequest}, body)
	c, _ := newClient(srv.URL, 2, 10)

	_, err := c.Analyze(context.Background(), request())
	var verr *vision.Error
	if !errors.As(err, &verr) || verr.Kind != vision.KindAuth || verr.Status != http.StatusBadRequest {
		t.Fatalf("Analyze() error = %#v, want auth failure with status 400", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

// TestAnalyzeExhaustsRetries verifies the final failure is the last one seen.
func TestAnalyzeExhaustsRetries(t *testing.T) {
	srv, hits := upstream(t, []int{500, 503, 429}, `{}`)
	c, delays := newClient(srv.URL, 2, 10)

	_, err := c.Analyze(context.Background(), request())
	if err == nil || err.Error() != "Vision service rate limit exceeded" {
		t.Fatalf("Analyze() error = %v, want rate limit", err)
	}
	if hits.Load() != 3 || len(*delays) != 2 {
		t.Fatalf("hits = %d, delays = %v", hits.Load(), *delays)
	}
}

// TestAnalyzeOpenBreaker verifies an open breaker short-circuits as unavailable.
func TestAnalyzeOpenBreaker(t *testing.T) {
	srv, hits := upstream(t, []int{500, 500}, `{}`)
	c, _ := newClient(srv.URL, 0, 1)

	if _, err := c.Analyze(context.Background(), request()); err == nil {
		t.Fatal("first Analyze() should fail")
	}
	_, err := c.Analyze(context.Background(), request())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Analyze() error = %v, want open breaker", err)
	}
	if err.Error() != "Vision service temporarily unavailable" {
		t.Fatalf("message = %q", err.Error())
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

// TestAnalyzeRequestShape verifies the generateContent payload.
func TestAnalyzeRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c, _ := newClient(srv.URL, 0, 10)
	if _, err := c.Analyze(context.Background(), request()); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("contents = %+v", got.Contents)
	}
	parts := got.Contents[0].Parts
	if parts[0].Text != "Describe" {
		t.Fatalf("prompt part = %+v", parts[0])
	}
	if parts[1].InlineData == nil || parts[1].InlineData.Data != base64.StdEncoding.EncodeToString(request().Image) {
		t.Fatalf("image part = %+v", parts[1])
	}
}
