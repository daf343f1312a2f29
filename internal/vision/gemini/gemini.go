// Package gemini implements vision.Analyzer with the Gemini generateContent API.
//
// Each call is retried with linear backoff (BaseDelay × attempt) except on
// credential failures, and every attempt runs through a circuit breaker so a
// failing upstream is not hammered by every client at once.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/metrics"
	"github.com/nadzzz/drishti/internal/vision"
)

// Client calls Gemini for image analysis.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client

	maxRetries int
	baseDelay  time.Duration
	breaker    *gobreaker.CircuitBreaker

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Gemini client from config.
func New(cfg config.VisionConfig) *Client {
	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	c := &Client{
		apiKey:     cfg.Gemini.APIKey,
		model:      cfg.Gemini.Model,
		endpoint:   strings.TrimRight(cfg.Gemini.Endpoint, "/"),
		client:     &http.Client{Timeout: cfg.Gemini.Timeout},
		maxRetries: cfg.Retry.MaxRetries,
		baseDelay:  cfg.Retry.BaseDelay,
		sleep:      sleepCtx,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini-vision",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Bad credentials and caller cancellation say nothing about upstream health.
			var verr *vision.Error
			if errors.As(err, &verr) && verr.Kind == vision.KindAuth {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Analyze sends the image and prompt to Gemini and returns the reply text.
// Failures are *vision.Error values.
func (c *Client) Analyze(ctx context.Context, req vision.Request) (string, error) {
	var last *vision.Error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(attempt)
			slog.Info("retrying vision request", "attempt", attempt, "delay", delay, "cause", last.Detail())
			metrics.VisionBackoffsTotal.Inc()
			if err := c.sleep(ctx, delay); err != nil {
				return "", &vision.Error{Kind: vision.KindNetwork, Err: err}
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			metrics.VisionAttemptsTotal.WithLabelValues("ok").Inc()
			return text, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.VisionAttemptsTotal.WithLabelValues("breaker_open").Inc()
			return "", &vision.Error{Kind: vision.KindUnavailable, Err: err}
		}

		var verr *vision.Error
		if !errors.As(err, &verr) {
			verr = &vision.Error{Kind: vision.KindNetwork, Err: err}
		}
		metrics.VisionAttemptsTotal.WithLabelValues(outcome(verr.Kind)).Inc()
		last = verr

		if !verr.Retryable() || ctx.Err() != nil {
			return "", verr
		}
	}
	return "", last
}

func (c *Client) attempt(ctx context.Context, req vision.Request) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) generate(ctx context.Context, req vision.Request) (string, error) {
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: req.Prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(req.Image)}},
			},
		}},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &vision.Error{Kind: vision.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", classify(resp.StatusCode, respBody)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", &vision.Error{Kind: vision.KindUnavailable, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	text := gen.text()
	if text == "" {
		reason := "no candidates"
		if gen.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + gen.PromptFeedback.BlockReason
		}
		return "", &vision.Error{Kind: vision.KindUnavailable, Status: resp.StatusCode, Err: errors.New(reason)}
	}

	slog.Debug("vision analysis complete", "text_length", len(text), "model", c.model)
	return text, nil
}

// classify maps a non-200 response to a vision failure. Gemini reports an
// invalid key as 400 with reason API_KEY_INVALID.
func classify(status int, body []byte) *vision.Error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		bytes.Contains(body, []byte("API_KEY_INVALID")):
		return &vision.Error{Kind: vision.KindAuth, Status: status, Err: err}
	case status == http.StatusTooManyRequests:
		return &vision.Error{Kind: vision.KindRateLimit, Status: status, Err: err}
	default:
		return &vision.Error{Kind: vision.KindUnavailable, Status: status, Err: err}
	}
}

func outcome(k vision.Kind) string {
	switch k {
	case vision.KindAuth:
		return "auth"
	case vision.KindRateLimit:
		return "rate_limit"
	case vision.KindNetwork:
		return "network"
	default:
		return "unavailable"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Wire types ---

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (g generateResponse) text() string {
	if len(g.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range g.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}
