// Package voice implements the speech interaction coordinator.
//
// The coordinator owns one State and guarantees that speaking and listening
// never overlap: starting an operation cancels whatever is in flight and
// waits for it to release its resource before the new one begins. Each
// operation is tagged with a generation number, and only the current
// generation may move the state, so late completions from superseded
// operations are ignored.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultListenTimeout bounds a recognition attempt with no speech.
	DefaultListenTimeout = 5 * time.Second

	// DefaultRetries is the number of additional speak+listen cycles
	// SpeakAndListen performs after a retryable failure.
	DefaultRetries = 2

	// PermissionPrompt is spoken when microphone access is denied.
	PermissionPrompt = "Microphone permission required."
)

// Utterance is one unit of speech to synthesize.
type Utterance struct {
	Text     string
	Language string
}

// Synthesizer renders an utterance to completion. Speak must return promptly
// once ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Recognizer runs one recognition attempt. Recognize must return promptly
// once ctx is cancelled. Errors should be *Failure values; anything else is
// treated as a network failure.
type Recognizer interface {
	Recognize(ctx context.Context, language string) (string, error)

	// Supported reports whether the runtime offers speech recognition at all.
	Supported() bool
}

// Microphone gates recognition on capture permission.
type Microphone interface {
	RequestAccess(ctx context.Context) error
}

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	// Language is the initial locale code (e.g. "en-IN").
	Language string

	// ListenTimeout bounds each recognition attempt.
	ListenTimeout time.Duration

	// Retryable decides which listen failures SpeakAndListen retries.
	Retryable func(error) bool

	// OnStateChange observes every applied transition. It is called with
	// the coordinator lock held and must not call back into the coordinator.
	OnStateChange func(from, to State)
}

// Coordinator serializes speak and listen operations over one state.
type Coordinator struct {
	synth Synthesizer
	rec   Recognizer
	mic   Microphone

	listenTimeout time.Duration
	retryable     func(error) bool
	onChange      func(from, to State)

	mu       sync.Mutex
	state    State
	gen      uint64
	language string
	op       *operation // current operation, nil once finished or stopped
	last     *operation // most recently begun operation, possibly still releasing
}

// operation is one in-flight speak or listen.
type operation struct {
	gen    uint64
	kind   State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator in the IDLE state.
func New(synth Synthesizer, rec Recognizer, mic Microphone, opts Options) *Coordinator {
	c := &Coordinator{
		synth:         synth,
		rec:           rec,
		mic:           mic,
		listenTimeout: opts.ListenTimeout,
		retryable:     opts.Retryable,
		onChange:      opts.OnStateChange,
		language:      opts.Language,
		state:         StateIdle,
	}
	if c.listenTimeout <= 0 {
		c.listenTimeout = DefaultListenTimeout
	}
	if c.retryable == nil {
		c.retryable = DefaultRetryable
	}
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSpeaking reports whether an utterance is in flight.
func (c *Coordinator) IsSpeaking() bool { return c.State() == StateSpeaking }

// IsListening reports whether a recognition attempt is in flight.
func (c *Coordinator) IsListening() bool { return c.State() == StateListening }

// Language returns the locale used for speaking and listening.
func (c *Coordinator) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// SetLanguage changes the locale for subsequent operations.
func (c *Coordinator) SetLanguage(code string) {
	c.mu.Lock()
	c.language = code
	c.mu.Unlock()
}

// Speak cancels anything in flight, then synthesizes text in the current
// language and blocks until the utterance finishes or fails. The state
// returns to IDLE either way. If the utterance is superseded or stopped,
// Speak returns ErrAborted.
func (c *Coordinator) Speak(ctx context.Context, text string) error {
	op, opCtx := c.begin(ctx, StateSpeaking)
	defer c.finish(op, StateIdle)

	if !c.enter(op, StateSpeaking) {
		return c.interrupted(ctx)
	}
	return c.speak(ctx, opCtx, text)
}

// speak runs the synthesizer inside an operation that already entered SPEAKING.
func (c *Coordinator) speak(ctx, opCtx context.Context, text string) error {
	u := Utterance{Text: text, Language: c.Language()}
	slog.Debug("speaking", "text_length", len(text), "language", u.Language)

	err := c.synth.Speak(opCtx, u)
	if opCtx.Err() != nil {
		return c.interrupted(ctx)
	}
	if err != nil {
		slog.Warn("synthesis failed", "error", err)
		return fmt.Errorf("synthesis: %w", err)
	}
	return nil
}

// Listen cancels anything in flight, checks microphone permission and runs
// one recognition attempt bounded by the listen timeout.
//
// A denied microphone speaks PermissionPrompt once and fails with
// ErrAudioCapture without entering LISTENING. A transcript leaves the
// coordinator in PROCESSING; every failure returns it to IDLE.
func (c *Coordinator) Listen(ctx context.Context) (string, error) {
	if !c.rec.Supported() {
		return "", ErrUnsupported
	}

	op, opCtx := c.begin(ctx, StateListening)
	next := StateIdle
	defer func() { c.finish(op, next) }()

	if err := c.mic.RequestAccess(opCtx); err != nil {
		if opCtx.Err() != nil {
			return "", c.interrupted(ctx)
		}
		slog.Warn("microphone access denied", "error", err)
		if c.enter(op, StateSpeaking) {
			_ = c.speak(ctx, opCtx, PermissionPrompt)
		}
		return "", Fail(ReasonAudioCapture, err)
	}

	if !c.enter(op, StateListening) {
		return "", c.interrupted(ctx)
	}

	transcript, err := c.recognize(ctx, opCtx)
	if err != nil {
		slog.Debug("recognition failed", "reason", ReasonOf(err), "error", err)
		return "", err
	}
	next = StateProcessing
	return transcript, nil
}

type recognition struct {
	text string
	err  error
}

type heardKey struct{}

// MarkHeard tells the coordinator running the recognition attempt behind ctx
// that speech has been captured. The no-speech timeout stops applying; the
// attempt stays bounded by ctx. Recognizers that transcribe after capture
// call it once the audio is in hand. It is a no-op outside a recognition.
func MarkHeard(ctx context.Context) {
	if heard, ok := ctx.Value(heardKey{}).(func()); ok {
		heard()
	}
}

// recognize races the recognizer against the no-speech timer. Whichever
// resolves first wins; the loser is discarded. The recognizer is cancelled
// and awaited before returning so no capture outlives the operation.
func (c *Coordinator) recognize(ctx, opCtx context.Context) (string, error) {
	heardCh := make(chan struct{})
	var heardOnce sync.Once
	recCtx, cancel := context.WithCancel(context.WithValue(opCtx, heardKey{},
		func() { heardOnce.Do(func() { close(heardCh) }) }))
	results := make(chan recognition, 1)
	finished := make(chan struct{})
	language := c.Language()

	go func() {
		defer close(finished)
		text, err := c.rec.Recognize(recCtx, language)
		results <- recognition{text: text, err: err}
	}()

	timer := time.NewTimer(c.listenTimeout)
	defer func() {
		timer.Stop()
		cancel()
		<-finished
	}()

	heard, timeout := (<-chan struct{})(heardCh), timer.C
	for {
		select {
		case r := <-results:
			if r.err != nil {
				return "", asFailure(r.err)
			}
			if strings.TrimSpace(r.text) == "" {
				return "", ErrNoSpeech
			}
			return r.text, nil
		case <-heard:
			heard, timeout = nil, nil
			timer.Stop()
		case <-timeout:
			return "", Fail(ReasonNoSpeech, fmt.Errorf("no speech within %s", c.listenTimeout))
		case <-opCtx.Done():
			return "", c.interrupted(ctx)
		}
	}
}

// SpeakAndListen speaks text and then listens. A retryable listen failure
// repeats the whole cycle up to retries more times; when the budget runs out
// the returned error matches both ErrRetriesExhausted and the last failure.
func (c *Coordinator) SpeakAndListen(ctx context.Context, text string, retries int) (string, error) {
	if retries < 0 {
		retries = 0
	}

	var last error
	for attempt := 1; attempt <= retries+1; attempt++ {
		if err := c.Speak(ctx, text); err != nil {
			if errors.Is(err, ErrAborted) || ctx.Err() != nil {
				return "", err
			}
			// A failed prompt still leaves the user able to answer.
		}

		transcript, err := c.Listen(ctx)
		if err == nil {
			return transcript, nil
		}
		if !c.retryable(err) {
			return "", err
		}
		last = err
		slog.Debug("listen failed, retrying", "attempt", attempt, "reason", ReasonOf(err))
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, retries+1, last)
}

// StopSpeaking cancels an in-flight utterance and forces IDLE.
// It is a no-op when nothing is being spoken.
func (c *Coordinator) StopSpeaking() {
	c.stop(StateSpeaking)
}

// StopListening cancels an in-flight recognition (or leaves PROCESSING) and
// forces IDLE. It is a no-op when nothing is being listened to.
func (c *Coordinator) StopListening() {
	c.stop(StateListening)
}

func (c *Coordinator) stop(kind State) {
	c.mu.Lock()
	op := c.op
	if op != nil && (op.kind == kind || c.state == kind) {
		c.op = nil
	} else {
		op = nil
	}
	if op != nil || c.state == kind || (kind == StateListening && c.state == StateProcessing) {
		c.setState(StateIdle)
	}
	c.mu.Unlock()

	if op != nil {
		op.cancel()
		<-op.done
	}
}

// begin registers a new current operation, cancels the previous one and
// waits for it to release its resource. An operation detached by stop may
// still be releasing, so the wait covers it too.
func (c *Coordinator) begin(ctx context.Context, kind State) (*operation, context.Context) {
	opCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	prev := c.last
	if c.op != nil {
		c.setState(StateIdle)
	}
	c.gen++
	op := &operation{gen: c.gen, kind: kind, cancel: cancel, done: make(chan struct{})}
	c.op = op
	c.last = op
	c.mu.Unlock()

	if prev != nil {
		slog.Debug("superseding operation", "previous", prev.gen, "current", op.gen)
		prev.cancel()
		<-prev.done
	}
	return op, opCtx
}

// enter moves the state to s if op is still current.
func (c *Coordinator) enter(op *operation, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.op != op {
		return false
	}
	c.setState(s)
	return true
}

// finish applies the operation's final state if it is still current, then
// releases it.
func (c *Coordinator) finish(op *operation, s State) {
	c.mu.Lock()
	if c.op == op {
		c.op = nil
		c.setState(s)
	}
	c.mu.Unlock()

	op.cancel()
	close(op.done)
}

// setState must be called with c.mu held.
func (c *Coordinator) setState(to State) {
	from := c.state
	if from == to {
		return
	}
	if !isValidTransition(from, to) {
		slog.Error("rejected voice state transition", "from", from, "to", to)
		return
	}
	c.state = to
	if c.onChange != nil {
		c.onChange(from, to)
	}
}

// interrupted reports why an operation stopped early: the caller's context,
// or supersession by another operation.
func (c *Coordinator) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrAborted
}

func asFailure(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Fail(ReasonNoSpeech, err)
	}
	return Fail(ReasonNetwork, err)
}
