// Package message defines the wire types exchanged with drishti clients.
package message

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// VisionRequest is the body of an image analysis call.
type VisionRequest struct {
	// Image is the frame as base64, optionally wrapped in a data URL
	// ("data:image/jpeg;base64,...").
	Image string `json:"image"`

	// Prompt is the instruction for the vision model.
	Prompt string `json:"prompt"`

	// MimeType overrides the type carried by a data URL. Defaults to image/jpeg.
	MimeType string `json:"mime_type,omitempty"`
}

// DecodeImage strips an optional data-URL prefix and decodes the image.
// It returns the image bytes and the effective MIME type.
func (r *VisionRequest) DecodeImage() ([]byte, string, error) {
	data := strings.TrimSpace(r.Image)
	mimeType := r.MimeType

	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data url")
		}
		if mt, _, _ := strings.Cut(meta, ";"); mt != "" && mimeType == "" {
			mimeType = mt
		}
		data = payload
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, mimeType, nil
}

// VisionResponse carries the model's description.
type VisionResponse struct {
	Text string `json:"text"`
}

// SpeechRequest asks the server to synthesize speech.
type SpeechRequest struct {
	Text string `json:"text"`

	// Language is a BCP-47 locale (e.g. "hi-IN"). Defaults to en-IN.
	Language string `json:"language,omitempty"`

	// Voice overrides the engine's voice for the language.
	Voice string `json:"voice,omitempty"`
}

// SpeechResponse carries synthesized audio.
type SpeechResponse struct {
	// Audio is the synthesized audio as a base64-encoded string.
	Audio string `json:"audio"`

	// ContentType is the MIME type of Audio (e.g. "audio/wav").
	ContentType string `json:"content_type"`

	// Engine names the synthesizer that produced the audio.
	Engine string `json:"engine,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *SpeechResponse) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// TranscribeRequest carries recorded audio for server-side recognition.
type TranscribeRequest struct {
	// Audio is the recording (base64 in JSON).
	Audio []byte `json:"audio"`

	// ContentType is the MIME type of the audio (e.g. "audio/webm").
	ContentType string `json:"content_type,omitempty"`

	// Language is the expected BCP-47 locale; empty lets the backend detect it.
	Language string `json:"language,omitempty"`
}

// TranscribeResponse carries a transcript.
type TranscribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// LanguageInfo describes one selectable language.
type LanguageInfo struct {
	Name   string `json:"name"`
	Native string `json:"native"`
	Code   string `json:"code"`
}

// LanguagePreference is a client's chosen language.
type LanguagePreference struct {
	// Language is the preference value, a language name such as "Hindi".
	Language string `json:"language"`

	// Code is the resolved locale. Ignored on input.
	Code string `json:"code,omitempty"`
}

// APIError is a failure reported to clients as {"error": "..."} with an
// HTTP status.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string { return e.Message }

// Errorf builds an APIError.
func Errorf(status int, format string, args ...any) *APIError {
	return &APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}
