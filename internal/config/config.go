// Package config handles loading and validating the drishti configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the drishti server.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transports  TransportsConfig  `mapstructure:"transports"`
	Vision      VisionConfig      `mapstructure:"vision"`
	TTS         TTSConfig         `mapstructure:"tts"`
	STT         STTConfig         `mapstructure:"stt"`
	Voice       VoiceConfig       `mapstructure:"voice"`
	Navigation  NavigationConfig  `mapstructure:"navigation"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // WebSocket origins; empty allows any
}

// VisionConfig configures the vision analysis upstream and its failure policy.
type VisionConfig struct {
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// GeminiConfig holds Gemini generateContent settings.
type GeminiConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint"` // base URL, e.g. https://generativelanguage.googleapis.com
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RetryConfig is a linear backoff policy: attempt n waits BaseDelay*n.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"` // consecutive failures before opening
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// TTSConfig selects and configures the text-to-speech backends.
type TTSConfig struct {
	Backend  string       `mapstructure:"backend"`  // "sarvam" or "piper"
	Fallback string       `mapstructure:"fallback"` // "piper" or "" for none
	Sarvam   SarvamConfig `mapstructure:"sarvam"`
	Piper    PiperConfig  `mapstructure:"piper"`
}

// SarvamConfig holds Sarvam AI API settings. It is shared by the TTS and
// STT sections; Speaker only applies to synthesis.
type SarvamConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	Speaker  string `mapstructure:"speaker"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// Endpoints maps ISO-639-1 codes to per-language Wyoming TCP endpoints and
// takes precedence over Endpoint.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Default Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // ISO-639-1 language code -> Wyoming TCP endpoint
	Voices    map[string]string `mapstructure:"voices"`    // ISO-639-1 language code -> Piper voice model name
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Backend string        `mapstructure:"backend"` // "sarvam" or "whisper"
	Sarvam  SarvamConfig  `mapstructure:"sarvam"`
	Whisper WhisperConfig `mapstructure:"whisper"`
}

// WhisperConfig holds self-hosted Whisper settings.
type WhisperConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (whisper-asr-webservice)
	VADFilter bool   `mapstructure:"vad_filter"`
	Language  string `mapstructure:"language"`
}

// VoiceConfig tunes the per-session speech coordinator.
type VoiceConfig struct {
	ListenTimeout   time.Duration `mapstructure:"listen_timeout"`
	Retries         int           `mapstructure:"retries"`
	TapWindow       time.Duration `mapstructure:"tap_window"`
	DefaultLanguage string        `mapstructure:"default_language"`
}

// NavigationConfig points at the geocoding and routing services.
type NavigationConfig struct {
	NominatimEndpoint string `mapstructure:"nominatim_endpoint"`
	OSRMEndpoint      string `mapstructure:"osrm_endpoint"`
	Profile           string `mapstructure:"profile"` // OSRM profile, e.g. "foot"
	UserAgent         string `mapstructure:"user_agent"`
}

// PreferencesConfig selects where language preferences are persisted.
type PreferencesConfig struct {
	Backend  string `mapstructure:"backend"` // "file" or "redis"
	Path     string `mapstructure:"path"`
	RedisURL string `mapstructure:"redis_url"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./drishti.yaml, ./configs/drishti.yaml, /etc/drishti/drishti.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("drishti")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/drishti")
	}

	// Environment variables: DRISHTI_SERVER_HEALTH_PORT, DRISHTI_VISION_GEMINI_API_KEY, etc.
	v.SetEnvPrefix("DRISHTI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Provider credentials may be "${GEMINI_API_KEY}" style references.
	cfg.Vision.Gemini.APIKey = resolveEnvRef(cfg.Vision.Gemini.APIKey)
	cfg.TTS.Sarvam.APIKey = resolveEnvRef(cfg.TTS.Sarvam.APIKey)
	cfg.STT.Sarvam.APIKey = resolveEnvRef(cfg.STT.Sarvam.APIKey)
	cfg.Preferences.RedisURL = resolveEnvRef(cfg.Preferences.RedisURL)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)

	v.SetDefault("vision.gemini.model", "gemini-1.5-flash")
	v.SetDefault("vision.gemini.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("vision.gemini.timeout", "30s")
	v.SetDefault("vision.retry.max_retries", 2)
	v.SetDefault("vision.retry.base_delay", "1s")
	v.SetDefault("vision.breaker.failure_threshold", 5)
	v.SetDefault("vision.breaker.open_timeout", "30s")

	v.SetDefault("tts.backend", "sarvam")
	v.SetDefault("tts.fallback", "piper")
	v.SetDefault("tts.sarvam.endpoint", "https://api.sarvam.ai/text-to-speech")
	v.SetDefault("tts.sarvam.model", "bulbul:v1")
	v.SetDefault("tts.sarvam.speaker", "meera")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")

	v.SetDefault("stt.backend", "sarvam")
	v.SetDefault("stt.sarvam.endpoint", "https://api.sarvam.ai/speech-to-text")
	v.SetDefault("stt.sarvam.model", "saarika:v1")
	v.SetDefault("stt.whisper.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("stt.whisper.type", "openai")
	v.SetDefault("stt.whisper.vad_filter", false)

	v.SetDefault("voice.listen_timeout", "5s")
	v.SetDefault("voice.retries", 2)
	v.SetDefault("voice.tap_window", "500ms")
	v.SetDefault("voice.default_language", "English")

	v.SetDefault("navigation.nominatim_endpoint", "https://nominatim.openstreetmap.org")
	v.SetDefault("navigation.osrm_endpoint", "https://router.project-osrm.org")
	v.SetDefault("navigation.profile", "foot")
	v.SetDefault("navigation.user_agent", "drishti/1.0")

	v.SetDefault("preferences.backend", "file")
	v.SetDefault("preferences.path", defaultPreferencesPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) validate() error {
	switch c.TTS.Backend {
	case "sarvam", "piper":
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	switch c.TTS.Fallback {
	case "", "piper":
	default:
		return fmt.Errorf("unknown tts fallback %q", c.TTS.Fallback)
	}
	switch c.STT.Backend {
	case "sarvam", "whisper":
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}
	switch c.Preferences.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown preferences backend %q", c.Preferences.Backend)
	}
	if c.Vision.Retry.MaxRetries < 0 || c.Voice.Retries < 0 {
		return fmt.Errorf("retry budgets must not be negative")
	}
	return nil
}

func defaultPreferencesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "preferences.json"
	}
	return filepath.Join(home, ".drishti", "preferences.json")
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
