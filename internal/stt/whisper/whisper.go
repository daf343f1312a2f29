// Package whisper implements stt.Transcriber against a self-hosted
// Whisper-compatible server.
//
// Two flavors are supported:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/provider"
	"github.com/nadzzz/drishti/internal/stt"
)

// Transcriber uses a local Whisper server.
type Transcriber struct {
	endpoint        string
	flavor          string
	vadFilter       bool
	defaultLanguage string
	client          *http.Client
}

// New creates a Whisper transcriber from config.
func New(cfg config.WhisperConfig) *Transcriber {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	return &Transcriber{
		endpoint:        cfg.Endpoint,
		flavor:          flavor,
		vadFilter:       cfg.VADFilter,
		defaultLanguage: cfg.Language,
		client:          &http.Client{},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe sends audio to the Whisper server. Whisper takes ISO-639-1
// language hints, so locales are reduced to their base language.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.TranscribeOpts) (*stt.Result, error) {
	lang := stt.BaseLanguage(opts.Language)
	if lang == "" {
		lang = t.defaultLanguage
	}

	var (
		req *http.Request
		err error
	)
	switch t.flavor {
	case "asr":
		req, err = t.asrRequest(ctx, audio, contentType, lang)
	default:
		req, err = t.openAIRequest(ctx, audio, contentType, lang)
	}
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription request: %w", err)
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp, "whisper transcription"); err != nil {
		return nil, err
	}

	// Both flavors answer {"text": "...", "language": "..."} for verbose_json.
	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	detected := stt.NormalizeLanguage(result.Language)
	if detected == "" {
		detected = opts.Language
	}
	slog.Debug("whisper transcription complete", "flavor", t.flavor, "text_length", len(result.Text), "language", detected)
	return &stt.Result{Text: result.Text, Language: detected}, nil
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }

// asrRequest builds POST /asr?task=transcribe&output=json with the audio in
// the "audio_file" field.
func (t *Transcriber) asrRequest(ctx context.Context, audio []byte, contentType, lang string) (*http.Request, error) {
	body, formType, err := form("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang != "" {
		q.Set("language", lang)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	return req, nil
}

func (t *Transcriber) openAIRequest(ctx context.Context, audio []byte, contentType, lang string) (*http.Request, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if lang != "" {
		fields["language"] = lang
	}
	body, formType, err := form("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	return req, nil
}

func form(fileField string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, "audio"+stt.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
