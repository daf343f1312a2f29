// Package transport defines the interface for pluggable client transports.
//
// Each transport (HTTP/WebSocket, gRPC) exposes the same Backend to clients.
// The backend doesn't care how requests arrive; it only works with the
// message types.
package transport

import (
	"context"

	"github.com/nadzzz/drishti/internal/message"
)

// Backend serves the requests every transport exposes. Failures that should
// reach the client with a specific status are *message.APIError values.
type Backend interface {
	// AnalyzeImage forwards an image and prompt to the vision service.
	AnalyzeImage(ctx context.Context, req *message.VisionRequest) (*message.VisionResponse, error)

	// Synthesize renders text to speech.
	Synthesize(ctx context.Context, req *message.SpeechRequest) (*message.SpeechResponse, error)

	// Transcribe converts recorded audio to text.
	Transcribe(ctx context.Context, req *message.TranscribeRequest) (*message.TranscribeResponse, error)

	// Languages lists the selectable speech languages.
	Languages() []message.LanguageInfo

	// Preference returns a client's stored language, or the default.
	Preference(ctx context.Context, clientID string) (*message.LanguagePreference, error)

	// SetPreference stores a client's language.
	SetPreference(ctx context.Context, clientID string, pref *message.LanguagePreference) (*message.LanguagePreference, error)

	// RunSession drives one interactive session until the connection closes
	// or ctx is cancelled.
	RunSession(ctx context.Context, conn SessionConn) error
}

// SessionConn is a bidirectional JSON message stream.
type SessionConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and serves them from the backend.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, backend Backend) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
