// Package sarvam implements tts.Synthesizer with the Sarvam AI
// text-to-speech API, which covers the Indian languages drishti speaks.
package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/provider"
	"github.com/nadzzz/drishti/internal/tts"
)

const defaultEndpoint = "https://api.sarvam.ai/text-to-speech"

// maxInputRunes is the per-input character limit of the API.
const maxInputRunes = 500

// ErrNoAPIKey is returned when no subscription key is configured.
var ErrNoAPIKey = errors.New("sarvam: api key not configured")

// Synthesizer calls Sarvam text-to-speech.
type Synthesizer struct {
	apiKey   string
	endpoint string
	speaker  string
	model    string
	client   *http.Client
}

// New creates a Sarvam synthesizer from config.
func New(cfg config.SarvamConfig) *Synthesizer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Synthesizer{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		speaker:  cfg.Speaker,
		model:    cfg.Model,
		client:   &http.Client{},
	}
}

// Name returns the engine identifier.
func (s *Synthesizer) Name() string { return "sarvam" }

// Synthesize renders text in the requested locale. Long text is split into
// sentence-aligned inputs and the returned WAV segments are joined.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if s.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	language := opts.Language
	if language == "" {
		language = "en-IN"
	}
	speaker := opts.Voice
	if speaker == "" {
		speaker = s.speaker
	}

	reqBody := ttsRequest{
		Inputs:             chunk(text, maxInputRunes),
		TargetLanguageCode: language,
		Speaker:            speaker,
		Model:              s.model,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating tts request: %w", err)
	}
	req.Header.Set("api-subscription-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp, "sarvam tts"); err != nil {
		return nil, err
	}

	var result ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding tts response: %w", err)
	}
	if len(result.Audios) == 0 {
		return nil, fmt.Errorf("no audio returned from sarvam")
	}

	segments := make([][]byte, 0, len(result.Audios))
	for i, a := range result.Audios {
		wav, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("decoding audio %d: %w", i, err)
		}
		segments = append(segments, wav)
	}

	audio, rate, channels, err := joinWAV(segments)
	if err != nil {
		return nil, err
	}

	slog.Debug("sarvam synthesis complete", "language", language, "speaker", speaker, "inputs", len(reqBody.Inputs), "bytes", len(audio))
	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: "audio/wav",
		SampleRate:  rate,
		Channels:    channels,
		Engine:      s.Name(),
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

type ttsRequest struct {
	Inputs             []string `json:"inputs"`
	TargetLanguageCode string   `json:"target_language_code"`
	Speaker            string   `json:"speaker,omitempty"`
	Model              string   `json:"model,omitempty"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

// chunk splits text into pieces of at most limit runes, preferring sentence
// ends ("." "?" "!" "।") and then spaces.
func chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	var out []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := -1
		for i := limit - 1; i > 0; i-- {
			switch runes[i] {
			case '.', '?', '!', '।':
				cut = i + 1
			}
			if cut > 0 {
				break
			}
		}
		if cut < 0 {
			for i := limit - 1; i > 0; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
		}
		if cut <= 0 {
			cut = limit
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		text = strings.TrimSpace(string(runes[cut:]))
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// joinWAV concatenates the PCM data of WAV segments that share a format and
// rewrites the sizes in the first segment's header.
func joinWAV(segments [][]byte) (wav []byte, rate, channels int, err error) {
	var header []byte
	var pcm bytes.Buffer
	for i, seg := range segments {
		h, data, err := splitWAV(seg)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("audio segment %d: %w", i, err)
		}
		if header == nil {
			header = h
		}
		pcm.Write(data)
	}

	out := make([]byte, 0, len(header)+pcm.Len())
	out = append(out, header...)
	out = append(out, pcm.Bytes()...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	binary.LittleEndian.PutUint32(out[len(header)-4:len(header)], uint32(pcm.Len()))

	channels = int(binary.LittleEndian.Uint16(header[22:24]))
	rate = int(binary.LittleEndian.Uint32(header[24:28]))
	return out, rate, channels, nil
}

// splitWAV returns everything up to and including the data chunk header,
// and the data chunk body.
func splitWAV(b []byte) (header, data []byte, err error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("not a wav file")
	}
	off := 12
	sawFmt := false
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if off != 12 || size < 16 {
				return nil, nil, fmt.Errorf("unexpected fmt chunk layout")
			}
			sawFmt = true
		}
		if id == "data" {
			if !sawFmt {
				return nil, nil, fmt.Errorf("data chunk before fmt chunk")
			}
			end := body + size
			if end > len(b) {
				end = len(b)
			}
			return b[:body], b[body:end], nil
		}
		off = body + size + size%2
	}
	return nil, nil, fmt.Errorf("no data chunk")
}
