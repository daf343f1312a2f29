// Package stt defines server-side speech-to-text transcription.
//
// Clients whose runtime has no speech recognizer record audio instead and
// drishti transcribes it with one of two backends: Sarvam (cloud) and a
// self-hosted Whisper-compatible server.
package stt

import (
	"context"
	"strings"
)

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the BCP-47 locale (e.g. "hi-IN") the speaker is expected
	// to use. Empty lets the backend detect it.
	Language string
}

// Result holds a transcript and the locale it was recognized in.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g. "sarvam", "whisper").
	Name() string

	// Transcribe converts audio bytes of the given content type to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (*Result, error)

	// Close releases any resources held by the transcriber.
	Close() error
}

// ExtFromContentType picks a file extension for multipart uploads.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// locales maps ISO-639-1 codes and English language names to the Indian
// locales drishti speaks.
var locales = map[string]string{
	"en": "en-IN", "english": "en-IN",
	"hi": "hi-IN", "hindi": "hi-IN",
	"ta": "ta-IN", "tamil": "ta-IN",
	"te": "te-IN", "telugu": "te-IN",
	"kn": "kn-IN", "kannada": "kn-IN",
}

// NormalizeLanguage converts a backend-reported language ("hindi", "hi",
// "hi-IN") to a BCP-47 locale. Unknown values are returned lower-cased.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if loc, ok := locales[strings.ToLower(lang)]; ok {
		return loc
	}
	if base, region, ok := strings.Cut(lang, "-"); ok {
		return strings.ToLower(base) + "-" + strings.ToUpper(region)
	}
	return strings.ToLower(lang)
}

// BaseLanguage returns the ISO-639-1 part of a locale.
func BaseLanguage(locale string) string {
	base, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(base)
}
