// Package session runs one interactive client session: it drives the
// client's speaker, microphone and camera over a JSON envelope stream,
// owns the session's speech coordinator and turns double-tapped controls
// into assistant actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/drishti/internal/gesture"
	"github.com/nadzzz/drishti/internal/language"
	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/metrics"
	"github.com/nadzzz/drishti/internal/navigation"
	"github.com/nadzzz/drishti/internal/stt"
	"github.com/nadzzz/drishti/internal/tts"
	"github.com/nadzzz/drishti/internal/vision"
	"github.com/nadzzz/drishti/internal/voice"
)

// Controls a client can tap.
const (
	ControlDescribe = "describe"
	ControlRead     = "read"
	ControlNavigate = "navigate"
	ControlLanguage = "language"
)

// Fixed sentences spoken by the session.
const (
	CameraPermissionPrompt   = "Camera permission required."
	LocationPermissionPrompt = "Location permission required."
	NotRecognized            = "Command not recognized."
	VoiceUnavailable         = "Voice input is not available."
	NavigationUnavailable    = "Navigation is not available."
	DestinationPrompt        = "Where to?"
)

// spokenSteps is how many route instructions follow the summary.
const spokenSteps = 3

var labels = map[string]string{
	ControlDescribe: "Describe scene",
	ControlRead:     "Read text",
	ControlNavigate: "Navigate",
	ControlLanguage: "Change language",
}

// Services are the collaborators shared by all sessions.
type Services struct {
	Vision    vision.Analyzer
	Navigator *navigation.Navigator // nil disables navigation
	Store     language.Store        // nil keeps preferences for the session only
	TTS       tts.Synthesizer       // nil when only clients synthesize
	STT       stt.Transcriber       // nil when only clients recognize
}

// Options tunes a session. Zero values select defaults.
type Options struct {
	ListenTimeout time.Duration
	Retries       int
	TapWindow     time.Duration
	Language      language.Language // used when the client has no stored preference
}

// Session is one connected client.
type Session struct {
	id    string
	svc   Services
	opts  Options
	log   *slog.Logger
	dev   *Device
	voice *voice.Coordinator

	controls map[string]*gesture.Control

	ctx      context.Context
	mu       sync.Mutex
	lang     language.Language
	current  *action
	finished sync.WaitGroup
}

// action is one running control activation.
type action struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Run serves a session until the connection fails or ctx is cancelled. The
// first envelope must be hello.
func Run(ctx context.Context, conn Conn, svc Services, opts Options) error {
	var hello message.Envelope
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if hello.Type != message.TypeHello {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(ctx, conn, hello, svc, opts)
	defer s.close()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	s.log.Info("session started",
		"language", s.language().Code,
		"client_recognition", hello.SupportsRecognition,
		"client_synthesis", hello.SupportsSynthesis)

	if err := s.dev.Send(message.Envelope{
		Type:     message.TypeWelcome,
		ClientID: s.id,
		Language: s.language().Code,
		State:    voice.StateIdle.String(),
	}); err != nil {
		return err
	}

	return s.readLoop()
}

func newSession(ctx context.Context, conn Conn, hello message.Envelope, svc Services, opts Options) *Session {
	if opts.Retries <= 0 {
		opts.Retries = voice.DefaultRetries
	}
	if opts.ListenTimeout <= 0 {
		opts.ListenTimeout = voice.DefaultListenTimeout
	}
	if opts.Language.Code == "" {
		opts.Language = language.Default
	}

	id := hello.ClientID
	if id == "" {
		id = uuid.NewString()
	}

	s := &Session{
		id:   id,
		svc:  svc,
		opts: opts,
		ctx:  ctx,
		log:  slog.With("client_id", id),
		lang: language.Resolve(ctx, svc.Store, id, opts.Language),
	}

	s.dev = NewDevice(conn, hello, svc.TTS, svc.STT)
	s.dev.ListenTimeout = opts.ListenTimeout

	s.voice = voice.New(s.dev, s.dev, s.dev, voice.Options{
		Language:      s.lang.Code,
		ListenTimeout: opts.ListenTimeout,
		OnStateChange: func(from, to voice.State) {
			metrics.VoiceTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
			s.dev.Notify(message.Envelope{Type: message.TypeState, State: to.String()})
		},
	})

	s.controls = make(map[string]*gesture.Control, len(labels))
	for name, label := range labels {
		s.controls[name] = gesture.New(label, opts.TapWindow,
			func(label string) { s.start("", func(ctx context.Context) error { return s.say(ctx, label) }) },
			func() { s.start(name, s.handler(name)) },
		)
	}
	return s
}

func (s *Session) readLoop() error {
	for {
		var env message.Envelope
		if err := s.dev.conn.ReadJSON(&env); err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading envelope: %w", err)
		}

		switch env.Type {
		case message.TypeTap:
			c, ok := s.controls[env.Control]
			if !ok {
				s.log.Warn("tap on unknown control", "control", env.Control)
				continue
			}
			c.Tap()
		case message.TypeStop:
			s.stop()
		case message.TypeHello:
			s.log.Debug("ignoring repeated hello")
		default:
			if env.Op == 0 || !s.dev.Deliver(env) {
				s.log.Debug("dropping stale reply", "type", env.Type, "op", env.Op)
			}
		}
	}
}

// start runs fn as the session's current action, cancelling the previous
// one. fn only starts once the previous action has returned. An empty
// control name marks a label announcement, which is not counted.
func (s *Session) start(control string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(s.ctx)
	next := &action{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	if control != "" {
		for name, c := range s.controls {
			if name != control {
				c.Reset()
			}
		}
	}

	s.finished.Add(1)
	go func() {
		defer s.finished.Done()
		defer close(next.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}
		if ctx.Err() != nil {
			return
		}

		err := fn(ctx)
		if control == "" {
			return
		}
		result := "ok"
		switch {
		case ctx.Err() != nil:
			result = "cancelled"
		case err != nil:
			result = "error"
			s.log.Warn("action failed", "control", control, "error", err)
		}
		metrics.ActionsTotal.WithLabelValues(control, result).Inc()
	}()
}

// stop cancels the current action and silences the client.
func (s *Session) stop() {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		cur.cancel()
	}
	s.voice.StopSpeaking()
	s.voice.StopListening()
}

func (s *Session) close() {
	s.stop()
	for _, c := range s.controls {
		c.Reset()
	}
	s.dev.Close()
	s.finished.Wait()
	s.log.Info("session ended")
}

func (s *Session) language() language.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

func (s *Session) setLanguage(l language.Language) {
	s.mu.Lock()
	s.lang = l
	s.mu.Unlock()
	s.voice.SetLanguage(l.Code)
}

// say speaks text unless the action was cancelled.
func (s *Session) say(ctx context.Context, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err := s.voice.Speak(ctx, text)
	if errors.Is(err, voice.ErrAborted) {
		return nil
	}
	return err
}
