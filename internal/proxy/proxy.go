// Package proxy implements the backend served by every transport.
//
// The proxy hides provider credentials from clients and passes requests
// through to the vision, speech and preference services without
// transforming their substance. Every failure leaves as a
// *message.APIError whose status tells the client what went wrong:
// 400 malformed input, 401 missing or rejected credentials, 429 upstream
// throttling, 500 anything else.
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/drishti/internal/language"
	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/metrics"
	"github.com/nadzzz/drishti/internal/provider"
	"github.com/nadzzz/drishti/internal/session"
	"github.com/nadzzz/drishti/internal/stt"
	"github.com/nadzzz/drishti/internal/transport"
	"github.com/nadzzz/drishti/internal/tts"
	"github.com/nadzzz/drishti/internal/vision"
)

// Proxy is the transport.Backend implementation.
type Proxy struct {
	svc  session.Services
	opts session.Options
}

var _ transport.Backend = (*Proxy)(nil)

// New creates a proxy over the shared services. opts configures the
// interactive sessions it runs.
func New(svc session.Services, opts session.Options) *Proxy {
	return &Proxy{svc: svc, opts: opts}
}

// configurable is implemented by upstream clients that know whether their
// credentials are present.
type configurable interface {
	Configured() bool
}

// AnalyzeImage forwards an image and prompt to the vision service.
func (p *Proxy) AnalyzeImage(ctx context.Context, req *message.VisionRequest) (resp *message.VisionResponse, err error) {
	logger := requestLogger("vision")
	defer observe("vision", time.Now(), &err)

	if c, ok := p.svc.Vision.(configurable); p.svc.Vision == nil || (ok && !c.Configured()) {
		return nil, message.Errorf(http.StatusUnauthorized, "Vision API key not configured")
	}
	if strings.TrimSpace(req.Image) == "" || strings.TrimSpace(req.Prompt) == "" {
		return nil, message.Errorf(http.StatusBadRequest, "image and prompt are required")
	}

	img, mimeType, err := req.DecodeImage()
	if err != nil {
		return nil, message.Errorf(http.StatusBadRequest, "invalid image: %v", err)
	}

	logger.Debug("analyzing image", "mime_type", mimeType, "bytes", len(img), "prompt_length", len(req.Prompt))
	text, err := p.svc.Vision.Analyze(ctx, vision.Request{Image: img, MimeType: mimeType, Prompt: req.Prompt})
	if err != nil {
		logger.Error("vision analysis failed", "error", err)
		return nil, visionError(err)
	}

	logger.Info("vision analysis complete", "text_length", len(text))
	return &message.VisionResponse{Text: text}, nil
}

// Synthesize renders text with the server-side synthesizer.
func (p *Proxy) Synthesize(ctx context.Context, req *message.SpeechRequest) (resp *message.SpeechResponse, err error) {
	logger := requestLogger("tts")
	defer observe("tts", time.Now(), &err)

	if p.svc.TTS == nil {
		return nil, message.Errorf(http.StatusServiceUnavailable, "speech synthesis not configured")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, message.Errorf(http.StatusBadRequest, "text is required")
	}

	locale := language.Default.Code
	if req.Language != "" {
		l, ok := language.Lookup(req.Language)
		if !ok {
			return nil, message.Errorf(http.StatusBadRequest, "unsupported language %q", req.Language)
		}
		locale = l.Code
	}

	res, err := p.svc.TTS.Synthesize(ctx, req.Text, tts.SynthesizeOpts{Language: locale, Voice: req.Voice})
	if err != nil {
		logger.Error("synthesis failed", "language", locale, "error", err)
		return nil, message.Errorf(provider.HTTPStatus(err), "speech synthesis failed")
	}

	resp = &message.SpeechResponse{ContentType: res.ContentType, Engine: res.Engine}
	resp.SetAudioBytes(res.Audio)
	logger.Info("synthesis complete", "language", locale, "engine", res.Engine, "audio_bytes", len(res.Audio))
	return resp, nil
}

// Transcribe converts recorded audio with the server-side transcriber.
func (p *Proxy) Transcribe(ctx context.Context, req *message.TranscribeRequest) (resp *message.TranscribeResponse, err error) {
	logger := requestLogger("stt")
	defer observe("stt", time.Now(), &err)

	if p.svc.STT == nil {
		return nil, message.Errorf(http.StatusServiceUnavailable, "speech recognition not configured")
	}
	if len(req.Audio) == 0 {
		return nil, message.Errorf(http.StatusBadRequest, "audio is required")
	}

	res, err := p.svc.STT.Transcribe(ctx, req.Audio, req.ContentType, stt.TranscribeOpts{
		Language: stt.NormalizeLanguage(req.Language),
	})
	if err != nil {
		logger.Error("transcription failed", "content_type", req.ContentType, "error", err)
		return nil, message.Errorf(provider.HTTPStatus(err), "speech recognition failed")
	}

	logger.Info("transcription complete", "text_length", len(res.Text), "language", res.Language)
	return &message.TranscribeResponse{Text: res.Text, Language: res.Language}, nil
}

// Languages lists the selectable speech languages in menu order.
func (p *Proxy) Languages() []message.LanguageInfo {
	all := language.All()
	out := make([]message.LanguageInfo, 0, len(all))
	for _, l := range all {
		out = append(out, message.LanguageInfo{Name: l.Name, Native: l.Native, Code: l.Code})
	}
	return out
}

// Preference returns the client's stored language, or the default.
func (p *Proxy) Preference(ctx context.Context, clientID string) (*message.LanguagePreference, error) {
	if clientID == "" {
		return nil, message.Errorf(http.StatusBadRequest, "client id is required")
	}
	l := language.Resolve(ctx, p.svc.Store, clientID, p.defaultLanguage())
	return &message.LanguagePreference{Language: l.Name, Code: l.Code}, nil
}

// SetPreference stores the client's language.
func (p *Proxy) SetPreference(ctx context.Context, clientID string, pref *message.LanguagePreference) (*message.LanguagePreference, error) {
	if clientID == "" {
		return nil, message.Errorf(http.StatusBadRequest, "client id is required")
	}
	l, ok := language.Lookup(pref.Language)
	if !ok {
		return nil, message.Errorf(http.StatusBadRequest, "unsupported language %q", pref.Language)
	}
	if p.svc.Store == nil {
		return nil, message.Errorf(http.StatusServiceUnavailable, "preference storage not configured")
	}
	if err := p.svc.Store.Set(ctx, clientID, l.Name); err != nil {
		slog.Error("storing language preference failed", "client_id", clientID, "error", err)
		return nil, message.Errorf(http.StatusInternalServerError, "storing preference failed")
	}
	slog.Info("language preference stored", "client_id", clientID, "language", l.Name)
	return &message.LanguagePreference{Language: l.Name, Code: l.Code}, nil
}

// RunSession drives one interactive session.
func (p *Proxy) RunSession(ctx context.Context, conn transport.SessionConn) error {
	return session.Run(ctx, conn, p.svc, p.opts)
}

func (p *Proxy) defaultLanguage() language.Language {
	if p.opts.Language.Code != "" {
		return p.opts.Language
	}
	return language.Default
}

// visionError maps a vision failure to its status and fixed sentence.
func visionError(err error) *message.APIError {
	var verr *vision.Error
	if !errors.As(err, &verr) {
		return message.Errorf(provider.HTTPStatus(err), "Vision service temporarily unavailable")
	}
	switch verr.Kind {
	case vision.KindAuth:
		return message.Errorf(http.StatusUnauthorized, "%s", verr.Error())
	case vision.KindRateLimit:
		return message.Errorf(http.StatusTooManyRequests, "%s", verr.Error())
	default:
		return message.Errorf(http.StatusInternalServerError, "%s", verr.Error())
	}
}

// StatusOf returns the HTTP status a transport should answer err with.
func StatusOf(err error) int {
	var apiErr *message.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

func requestLogger(route string) *slog.Logger {
	return slog.With("request_id", uuid.NewString(), "route", route)
}

func observe(route string, start time.Time, err *error) {
	status := http.StatusOK
	if *err != nil {
		status = StatusOf(*err)
	}
	metrics.ProxyRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	metrics.ProxyLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
