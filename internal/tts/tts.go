// Package tts defines server-side text-to-speech synthesis.
//
// Drishti synthesizes speech for clients that lack a usable on-device voice
// for the selected language. Languages are BCP-47 locale codes ("hi-IN");
// engines that only understand ISO-639-1 use Base.
package tts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nadzzz/drishti/internal/metrics"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the BCP-47 locale (e.g. "ta-IN") used to select the voice.
	Language string

	// Voice overrides automatic language-based voice selection.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name identifies the engine in logs.
	Name() string

	// Synthesize renders text to a complete audio file.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio file (WAV).
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz (e.g., 22050).
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int

	// Engine names the synthesizer that produced the audio.
	Engine string
}

// Base returns the ISO-639-1 part of a locale code, lower-cased.
func Base(locale string) string {
	base, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(base)
}

// Fallback synthesizes with Primary and, on any error, re-synthesizes the
// same text and language with Secondary.
type Fallback struct {
	Primary   Synthesizer
	Secondary Synthesizer
}

// Name returns the primary engine's name.
func (f *Fallback) Name() string { return f.Primary.Name() }

// Synthesize implements Synthesizer.
func (f *Fallback) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error) {
	res, err := f.Primary.Synthesize(ctx, text, opts)
	if err == nil || f.Secondary == nil || ctx.Err() != nil {
		return res, err
	}

	slog.Warn("primary synthesis failed, falling back",
		"primary", f.Primary.Name(),
		"secondary", f.Secondary.Name(),
		"language", opts.Language,
		"error", err)
	metrics.SynthesisFallbacksTotal.Inc()

	// The secondary picks its own voice for the language.
	opts.Voice = ""
	return f.Secondary.Synthesize(ctx, text, opts)
}

// Close closes both engines.
func (f *Fallback) Close() error {
	err := f.Primary.Close()
	if f.Secondary != nil {
		if serr := f.Secondary.Close(); err == nil {
			err = serr
		}
	}
	return err
}
