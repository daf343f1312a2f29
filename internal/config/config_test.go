package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadDefaults verifies the defaults when only an empty file is given.
func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drishti.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transports.HTTP.Port != 8080 {
		t.Fatalf("http port = %d, want 8080", cfg.Transports.HTTP.Port)
	}
	if cfg.Vision.Retry.MaxRetries != 2 || cfg.Vision.Retry.BaseDelay != time.Second {
		t.Fatalf("vision retry = %+v, want 2 x 1s", cfg.Vision.Retry)
	}
	if cfg.Voice.ListenTimeout != 5*time.Second || cfg.Voice.Retries != 2 {
		t.Fatalf("voice = %+v", cfg.Voice)
	}
	if cfg.Voice.TapWindow != 500*time.Millisecond {
		t.Fatalf("tap window = %s, want 500ms", cfg.Voice.TapWindow)
	}
	if cfg.STT.Sarvam.Model != "saarika:v1" {
		t.Fatalf("stt model = %q", cfg.STT.Sarvam.Model)
	}
}

// TestLoadFileAndEnvRef verifies file values and ${VAR} credential references.
func TestLoadFileAndEnvRef(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-key")

	path := filepath.Join(t.TempDir(), "drishti.yaml")
	yaml := `
vision:
  gemini:
    api_key: "${TEST_GEMINI_KEY}"
  retry:
    base_delay: 250ms
tts:
  backend: piper
  fallback: ""
  piper:
    voices:
      hi: hi_IN-pratham-medium
preferences:
  backend: redis
  redis_url: redis://localhost:6379/0
logging:
  format: text
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Vision.Gemini.APIKey != "secret-key" {
		t.Fatalf("api key = %q, want resolved env value", cfg.Vision.Gemini.APIKey)
	}
	if cfg.Vision.Retry.BaseDelay != 250*time.Millisecond {
		t.Fatalf("base delay = %s", cfg.Vision.Retry.BaseDelay)
	}
	if cfg.TTS.Backend != "piper" || cfg.TTS.Piper.Voices["hi"] != "hi_IN-pratham-medium" {
		t.Fatalf("tts = %+v", cfg.TTS)
	}
	if cfg.Preferences.Backend != "redis" {
		t.Fatalf("preferences backend = %q", cfg.Preferences.Backend)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drishti.yaml")
	if err := os.WriteFile(path, []byte("stt:\n  backend: carrier-pigeon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted an unknown stt backend")
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("DRISHTI_TEST_REF", "value")
	if got := resolveEnvRef("${DRISHTI_TEST_REF}"); got != "value" {
		t.Fatalf("resolveEnvRef() = %q, want value", got)
	}
	if got := resolveEnvRef("${DRISHTI_TEST_UNSET}"); got != "${DRISHTI_TEST_UNSET}" {
		t.Fatalf("unset reference changed to %q", got)
	}
	if got := resolveEnvRef("plain"); got != "plain" {
		t.Fatalf("resolveEnvRef(plain) = %q", got)
	}
}
