// Package sarvam implements stt.Transcriber with the Sarvam AI
// speech-to-text API.
package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/provider"
	"github.com/nadzzz/drishti/internal/stt"
)

const defaultEndpoint = "https://api.sarvam.ai/speech-to-text"

// ErrNoAPIKey is returned when no subscription key is configured.
var ErrNoAPIKey = errors.New("sarvam: api key not configured")

// Transcriber calls Sarvam speech-to-text.
type Transcriber struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// New creates a Sarvam transcriber from config.
func New(cfg config.SarvamConfig) *Transcriber {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Transcriber{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    cfg.Model,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "sarvam" }

// Transcribe uploads audio as multipart form data.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.TranscribeOpts) (*stt.Result, error) {
	if t.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="audio%s"`, stt.ExtFromContentType(contentType)))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}

	if t.model != "" {
		_ = writer.WriteField("model", t.model)
	}
	language := opts.Language
	if language == "" {
		language = "unknown"
	}
	_ = writer.WriteField("language_code", language)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("api-subscription-key", t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp, "sarvam transcription"); err != nil {
		return nil, err
	}

	var result struct {
		Transcript   string `json:"transcript"`
		LanguageCode string `json:"language_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	lang := stt.NormalizeLanguage(result.LanguageCode)
	if lang == "" {
		lang = opts.Language
	}
	slog.Debug("sarvam transcription complete", "text_length", len(result.Transcript), "language", lang)
	return &stt.Result{Text: result.Transcript, Language: lang}, nil
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }
