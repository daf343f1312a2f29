// Package piper implements tts.Synthesizer against a Piper Wyoming server.
//
// Piper is the local fallback engine. Voices and endpoints are selected by
// the locale's base language.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/tts"
)

// ErrNoVoice is returned when no voice is known for the requested language.
var ErrNoVoice = errors.New("piper: no voice for language")

// defaultVoices maps ISO-639-1 codes to Piper voice model names. Other
// languages need a voice configured under tts.piper.voices.
var defaultVoices = map[string]string{
	"en": "en_GB-alan-medium",
	"hi": "hi_IN-pratham-medium",
}

// Synthesizer implements tts.Synthesizer using the Wyoming protocol.
type Synthesizer struct {
	endpoint  string            // default host:port
	endpoints map[string]string // base language -> host:port
	voices    map[string]string // base language -> voice name
	dialer    net.Dialer
}

// New creates a Piper synthesizer from config. Configured voices override
// the defaults.
func New(cfg config.PiperConfig) *Synthesizer {
	voices := make(map[string]string, len(defaultVoices)+len(cfg.Voices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range cfg.Voices {
		voices[tts.Base(k)] = v
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		endpoints[tts.Base(lang)] = hostPort(ep)
	}

	return &Synthesizer{
		endpoint:  hostPort(cfg.Endpoint),
		endpoints: endpoints,
		voices:    voices,
		dialer:    net.Dialer{Timeout: 10 * time.Second},
	}
}

// Name returns the engine identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize sends text to the Piper server and returns the audio as WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	lang := tts.Base(opts.Language)
	if lang == "" {
		lang = "en"
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.voices[lang]
	}
	if voice == "" {
		return nil, fmt.Errorf("%w %q", ErrNoVoice, opts.Language)
	}

	endpoint := s.endpoints[lang]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured for language %q", opts.Language)
	}

	logger := slog.With("voice", voice, "language", opts.Language, "endpoint", endpoint)
	logger.Debug("piper synthesize", "text_length", len(text))

	conn, err := s.dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	// Unblock reads if the caller gives up before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	w := newWire(conn)
	if err := w.write(event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	format := audioFormat{rate: 22050, width: 2, channels: 1}
	var pcm bytes.Buffer
	for {
		evt, payload, err := w.read()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			format.update(evt.Data)
			logger.Debug("piper audio-start", "rate", format.rate, "channels", format.channels, "width", format.width)
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			logger.Debug("piper audio-stop", "pcm_bytes", pcm.Len())
			return &tts.SynthesizeResult{
				Audio:       format.wav(pcm.Bytes()),
				ContentType: "audio/wav",
				SampleRate:  format.rate,
				Channels:    format.channels,
				Engine:      s.Name(),
			}, nil
		case "error":
			msg, _ := evt.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		default:
			logger.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// Close is a no-op; connections are per request.
func (s *Synthesizer) Close() error { return nil }

func hostPort(ep string) string {
	ep = strings.TrimPrefix(ep, "tcp://")
	return strings.TrimPrefix(ep, "http://")
}
