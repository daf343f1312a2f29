// Package http implements the HTTP/WebSocket transport for drishti.
//
// This transport exposes the REST proxy API used by browser and phone
// clients and a WebSocket endpoint carrying interactive sessions.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/transport"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/drishti/docs" // registers the OpenAPI document
)

const (
	// maxBody bounds JSON and audio uploads.
	maxBody = 25 << 20 // 25 MB

	// HeaderClient identifies the client for preference routes.
	HeaderClient = "X-Drishti-Client"

	// HeaderLanguage carries the expected language with raw audio uploads.
	HeaderLanguage = "X-Drishti-Language"
)

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port           int
	allowedOrigins []string
	upgrader       websocket.Upgrader
	server         *http.Server
}

// New creates a new HTTP transport on the given port. allowedOrigins
// restricts cross-origin browsers; empty allows any origin.
func New(port int, allowedOrigins []string) *Transport {
	t := &Transport{port: port, allowedOrigins: allowedOrigins}
	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  65536,
		WriteBufferSize: 65536,
		CheckOrigin:     func(r *http.Request) bool { return t.originAllowed(r.Header.Get("Origin")) },
	}
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler builds the route table served by Listen.
func (t *Transport) Handler(ctx context.Context, backend transport.Backend) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/vision", func(w http.ResponseWriter, r *http.Request) {
		t.handleVision(w, r, backend)
	})
	mux.HandleFunc("POST /api/tts", func(w http.ResponseWriter, r *http.Request) {
		t.handleSpeech(w, r, backend)
	})
	mux.HandleFunc("POST /api/stt", func(w http.ResponseWriter, r *http.Request) {
		t.handleTranscribe(w, r, backend)
	})
	mux.HandleFunc("GET /api/languages", func(w http.ResponseWriter, r *http.Request) {
		t.handleLanguages(w, r, backend)
	})
	mux.HandleFunc("GET /api/preferences/language", func(w http.ResponseWriter, r *http.Request) {
		t.handleGetPreference(w, r, backend)
	})
	mux.HandleFunc("PUT /api/preferences/language", func(w http.ResponseWriter, r *http.Request) {
		t.handleSetPreference(w, r, backend)
	})

	// GET /ws/session: interactive session channel.
	mux.HandleFunc("GET /ws/session", func(w http.ResponseWriter, r *http.Request) {
		t.handleSession(ctx, w, r, backend)
	})

	// Swagger UI, serving the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return t.withCORS(mux)
}

// Listen starts the HTTP server and routes incoming requests to the backend.
func (t *Transport) Listen(ctx context.Context, backend transport.Backend) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(ctx, backend),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleVision processes a POST /api/vision request.
//
// @Summary     Analyze an image
// @Description Forwards a camera frame and an instruction to the vision model and returns its description.
// @Description The image may be plain base64 or a data URL. Provider credentials stay on the server.
// @Tags        vision
// @Accept      json
// @Produce     json
// @Param       request  body      message.VisionRequest   true  "Image and prompt"
// @Success     200      {object}  message.VisionResponse  "Model reply"
// @Failure     400      {object}  message.APIError        "Missing or malformed image or prompt"
// @Failure     401      {object}  message.APIError        "Vision API key missing or invalid"
// @Failure     429      {object}  message.APIError        "Vision service rate limit exceeded"
// @Failure     500      {object}  message.APIError        "Vision service unavailable"
// @Router      /api/vision [post]
func (t *Transport) handleVision(w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	var req message.VisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := backend.AnalyzeImage(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSpeech processes a POST /api/tts request.
//
// @Summary     Synthesize speech
// @Description Renders text to WAV audio in one of the supported languages. Falls back to the
// @Description secondary engine when the primary fails.
// @Tags        speech
// @Accept      json
// @Produce     json
// @Param       request  body      message.SpeechRequest   true  "Text and language"
// @Success     200      {object}  message.SpeechResponse  "Base64 audio"
// @Failure     400      {object}  message.APIError        "Missing text or unsupported language"
// @Failure     401      {object}  message.APIError        "Provider credential rejected"
// @Failure     429      {object}  message.APIError        "Provider rate limit exceeded"
// @Failure     500      {object}  message.APIError        "Synthesis failed"
// @Failure     503      {object}  message.APIError        "Synthesis not configured"
// @Router      /api/tts [post]
func (t *Transport) handleSpeech(w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	var req message.SpeechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := backend.Synthesize(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTranscribe processes a POST /api/stt request.
//
// @Summary     Transcribe speech
// @Description Accepts raw audio bytes (with the expected language in a header) or a JSON body
// @Description with base64 audio, and returns the transcript.
// @Tags        speech
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/webm
// @Accept      audio/ogg
// @Produce     json
// @Param       request             body    message.TranscribeRequest  true   "Transcription request (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Drishti-Language  header  string                     false  "Expected language (used with raw audio uploads)"
// @Success     200  {object}  message.TranscribeResponse  "Transcript"
// @Failure     400  {object}  message.APIError            "Missing or unreadable audio"
// @Failure     500  {object}  message.APIError            "Transcription failed"
// @Failure     503  {object}  message.APIError            "Transcription not configured"
// @Router      /api/stt [post]
func (t *Transport) handleTranscribe(w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	var req message.TranscribeRequest

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	default:
		// Treat body as raw audio; read the language from headers.
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			writeError(w, message.Errorf(http.StatusBadRequest, "reading audio: %v", err))
			return
		}
		req.Audio = audio
		req.ContentType = contentType
		req.Language = r.Header.Get(HeaderLanguage)
	}

	resp, err := backend.Transcribe(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLanguages processes a GET /api/languages request.
//
// @Summary     List languages
// @Description Returns the selectable speech languages in menu order.
// @Tags        preferences
// @Produce     json
// @Success     200  {array}  message.LanguageInfo
// @Router      /api/languages [get]
func (t *Transport) handleLanguages(w http.ResponseWriter, _ *http.Request, backend transport.Backend) {
	writeJSON(w, http.StatusOK, backend.Languages())
}

// handleGetPreference processes a GET /api/preferences/language request.
//
// @Summary     Get language preference
// @Description Returns the client's stored language, or the default when none is stored.
// @Tags        preferences
// @Produce     json
// @Param       X-Drishti-Client  header  string  false  "Client identifier"
// @Param       client_id         query   string  false  "Client identifier (alternative to the header)"
// @Success     200  {object}  message.LanguagePreference
// @Failure     400  {object}  message.APIError  "Missing client id"
// @Router      /api/preferences/language [get]
func (t *Transport) handleGetPreference(w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	pref, err := backend.Preference(r.Context(), clientID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// handleSetPreference processes a PUT /api/preferences/language request.
//
// @Summary     Set language preference
// @Description Stores the client's language by name, endonym or locale code.
// @Tags        preferences
// @Accept      json
// @Produce     json
// @Param       X-Drishti-Client  header  string                      false  "Client identifier"
// @Param       client_id         query   string                      false  "Client identifier (alternative to the header)"
// @Param       preference        body    message.LanguagePreference  true   "Language to store"
// @Success     200  {object}  message.LanguagePreference
// @Failure     400  {object}  message.APIError  "Missing client id or unsupported language"
// @Failure     500  {object}  message.APIError  "Storage failure"
// @Router      /api/preferences/language [put]
func (t *Transport) handleSetPreference(w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	var pref message.LanguagePreference
	if err := decodeJSON(r, &pref); err != nil {
		writeError(w, err)
		return
	}

	stored, err := backend.SetPreference(r.Context(), clientID(r), &pref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handleSession upgrades GET /ws/session and runs an interactive session
// until either side closes it or the transport shuts down.
func (t *Transport) handleSession(ctx context.Context, w http.ResponseWriter, r *http.Request, backend transport.Backend) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(maxBody)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	slog.Debug("session connected", "remote", r.RemoteAddr)
	err = backend.RunSession(ctx, conn)
	if err != nil && !closedNormally(err) {
		slog.Warn("session ended with error", "remote", r.RemoteAddr, "error", err)
		return
	}
	slog.Debug("session disconnected", "remote", r.RemoteAddr)
}

// withCORS answers preflight requests and tags responses for allowed origins.
func (t *Transport) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && t.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderClient+", "+HeaderLanguage)
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Transport) originAllowed(origin string) bool {
	if len(t.allowedOrigins) == 0 || origin == "" {
		return true
	}
	return slices.Contains(t.allowedOrigins, origin) || slices.Contains(t.allowedOrigins, "*")
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// closedNormally reports whether err is the client hanging up.
func closedNormally(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	default:
		return false
	}
}

func clientID(r *http.Request) string {
	if id := r.Header.Get(HeaderClient); id != "" {
		return id
	}
	return r.URL.Query().Get("client_id")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return message.Errorf(http.StatusBadRequest, "invalid json: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *message.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected backend error", "error", err)
		apiErr = message.Errorf(http.StatusInternalServerError, "internal error")
	}
	writeJSON(w, apiErr.Status, apiErr)
}
