// Drishti is a voice and vision assistant backend for visually impaired
// users. It proxies camera frames to a vision model, renders and transcribes
// speech in Indian languages, and drives tap-controlled voice sessions for
// browser and device clients.
//
// Usage:
//
//	drishti [flags]
//	drishti --config /path/to/drishti.yaml
//
// @title						Drishti API
// @version					0.1.0
// @description				Voice and vision assistant backend for visually impaired users.
// @BasePath					/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/health"
	"github.com/nadzzz/drishti/internal/language"
	"github.com/nadzzz/drishti/internal/navigation"
	"github.com/nadzzz/drishti/internal/proxy"
	"github.com/nadzzz/drishti/internal/session"
	"github.com/nadzzz/drishti/internal/stt"
	sarvamstt "github.com/nadzzz/drishti/internal/stt/sarvam"
	"github.com/nadzzz/drishti/internal/stt/whisper"
	"github.com/nadzzz/drishti/internal/transport"
	grpctransport "github.com/nadzzz/drishti/internal/transport/grpc"
	httptransport "github.com/nadzzz/drishti/internal/transport/http"
	"github.com/nadzzz/drishti/internal/tts"
	"github.com/nadzzz/drishti/internal/tts/piper"
	sarvamtts "github.com/nadzzz/drishti/internal/tts/sarvam"
	"github.com/nadzzz/drishti/internal/vision/gemini"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/drishti.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("drishti %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("drishti starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer := gemini.New(cfg.Vision)
	if !analyzer.Configured() {
		slog.Warn("vision API key not configured, image analysis will be rejected")
	}
	slog.Info("using Gemini vision", "model", cfg.Vision.Gemini.Model)

	synth := newSynthesizer(cfg.TTS)
	defer synth.Close()

	transcriber := newTranscriber(cfg.STT)
	defer transcriber.Close()

	store, err := newStore(cfg.Preferences)
	if err != nil {
		slog.Error("failed to open preference store", "backend", cfg.Preferences.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	defaultLang, ok := language.Lookup(cfg.Voice.DefaultLanguage)
	if !ok {
		slog.Warn("unknown default language, using English", "language", cfg.Voice.DefaultLanguage)
		defaultLang = language.Default
	}

	backend := proxy.New(session.Services{
		Vision: analyzer,
		Navigator: &navigation.Navigator{
			Geocoder: navigation.NewNominatim(cfg.Navigation.NominatimEndpoint, cfg.Navigation.UserAgent),
			Router:   navigation.NewOSRM(cfg.Navigation.OSRMEndpoint, cfg.Navigation.Profile),
		},
		Store: store,
		TTS:   synth,
		STT:   transcriber,
	}, session.Options{
		ListenTimeout: cfg.Voice.ListenTimeout,
		Retries:       cfg.Voice.Retries,
		TapWindow:     cfg.Voice.TapWindow,
		Language:      defaultLang,
	})

	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, cfg.Transports.HTTP.AllowedOrigins))
	}
	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	healthServer := health.New(cfg.Server.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, backend); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("drishti ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("drishti stopped")
}

func newSynthesizer(cfg config.TTSConfig) tts.Synthesizer {
	var primary tts.Synthesizer
	switch cfg.Backend {
	case "piper":
		primary = piper.New(cfg.Piper)
	default:
		primary = sarvamtts.New(cfg.Sarvam)
	}
	slog.Info("using TTS engine", "backend", cfg.Backend, "fallback", cfg.Fallback)

	if cfg.Fallback == "piper" && cfg.Backend != "piper" {
		return &tts.Fallback{Primary: primary, Secondary: piper.New(cfg.Piper)}
	}
	return primary
}

func newTranscriber(cfg config.STTConfig) stt.Transcriber {
	switch cfg.Backend {
	case "whisper":
		slog.Info("using Whisper transcription", "endpoint", cfg.Whisper.Endpoint, "type", cfg.Whisper.Type)
		return whisper.New(cfg.Whisper)
	default:
		slog.Info("using Sarvam transcription", "model", cfg.Sarvam.Model)
		return sarvamstt.New(cfg.Sarvam)
	}
}

func newStore(cfg config.PreferencesConfig) (language.Store, error) {
	switch cfg.Backend {
	case "redis":
		slog.Info("storing language preferences in redis")
		return language.NewRedisStore(cfg.RedisURL)
	default:
		slog.Info("storing language preferences on disk", "path", cfg.Path)
		return language.NewFileStore(cfg.Path), nil
	}
}
