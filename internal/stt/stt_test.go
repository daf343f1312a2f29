package stt

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"hindi":   "hi-IN",
		"HI":      "hi-IN",
		"ta-IN":   "ta-IN",
		"kn-in":   "kn-IN",
		"Kannada": "kn-IN",
		"fr":      "fr",
		"":        "",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtFromContentType(t *testing.T) {
	cases := map[string]string{
		"audio/webm;codecs=opus": ".webm",
		"audio/wav":              ".wav",
		"audio/mpeg":             ".mp3",
		"audio/mp4":              ".m4a",
		"":                       ".wav",
	}
	for in, want := range cases {
		if got := ExtFromContentType(in); got != want {
			t.Errorf("ExtFromContentType(%q) = %q, want %q", in, got, want)
		}
	}
}
