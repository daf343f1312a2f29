package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/navigation"
	"github.com/nadzzz/drishti/internal/stt"
	"github.com/nadzzz/drishti/internal/tts"
	"github.com/nadzzz/drishti/internal/voice"
)

var (
	// ErrClosed is returned by requests pending when the session ends.
	ErrClosed = errors.New("session closed")

	// ErrCameraDenied means the client refused camera access.
	ErrCameraDenied = errors.New("camera permission denied")

	// ErrLocationDenied means the client could not or would not report a position.
	ErrLocationDenied = errors.New("location unavailable")
)

// Conn is the client's JSON envelope stream. ReadJSON is only called from
// the session's read loop and WriteJSON only from its writer.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
}

// Device drives the client's speaker, microphone, camera and location
// over the envelope stream. Each request carries a fresh op number and waits
// for the reply echoing it; replies for ops nobody waits on are dropped.
//
// Device implements voice.Synthesizer, voice.Recognizer and voice.Microphone.
type Device struct {
	conn Conn
	tts  tts.Synthesizer // nil when the client must synthesize
	stt  stt.Transcriber // nil when the client must recognize

	clientRecognition bool
	clientSynthesis   bool

	// ListenTimeout is advertised to recognizing clients in listen
	// requests. Recording clients get a shorter capture window.
	ListenTimeout time.Duration

	out    chan message.Envelope
	closed chan struct{}
	once   sync.Once

	mu         sync.Mutex
	nextOp     uint64
	pending    map[uint64]chan message.Envelope
	micGranted bool
}

// NewDevice creates a device for a client that announced its capabilities
// in hello. synth and transcriber may be nil.
func NewDevice(conn Conn, hello message.Envelope, synth tts.Synthesizer, transcriber stt.Transcriber) *Device {
	d := &Device{
		conn:              conn,
		tts:               synth,
		stt:               transcriber,
		clientRecognition: hello.SupportsRecognition,
		clientSynthesis:   hello.SupportsSynthesis,
		out:               make(chan message.Envelope, 64),
		closed:            make(chan struct{}),
		pending:           make(map[uint64]chan message.Envelope),
	}
	go d.writeLoop()
	return d
}

func (d *Device) writeLoop() {
	for {
		select {
		case env := <-d.out:
			if err := d.conn.WriteJSON(env); err != nil {
				slog.Debug("writing envelope failed", "type", env.Type, "error", err)
			}
		case <-d.closed:
			return
		}
	}
}

// Send queues an envelope for the client.
func (d *Device) Send(env message.Envelope) error {
	select {
	case d.out <- env:
		return nil
	case <-d.closed:
		return ErrClosed
	}
}

// Notify queues an envelope without blocking, dropping it if the queue is full.
func (d *Device) Notify(env message.Envelope) {
	select {
	case d.out <- env:
	default:
		slog.Warn("session send queue full, dropping envelope", "type", env.Type)
	}
}

// Deliver routes a client reply to the request waiting for its op. It
// reports false when no request is waiting.
func (d *Device) Deliver(env message.Envelope) bool {
	d.mu.Lock()
	ch, ok := d.pending[env.Op]
	if ok {
		delete(d.pending, env.Op)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	ch <- env
	return true
}

// Close fails every pending request with ErrClosed and stops the writer.
func (d *Device) Close() {
	d.once.Do(func() { close(d.closed) })
}

// request sends env with a fresh op and waits for the reply. On
// cancellation the client is told to abandon the op.
func (d *Device) request(ctx context.Context, env message.Envelope) (message.Envelope, error) {
	ch := make(chan message.Envelope, 1)

	d.mu.Lock()
	d.nextOp++
	op := d.nextOp
	d.pending[op] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, op)
		d.mu.Unlock()
	}()

	env.Op = op
	if err := d.Send(env); err != nil {
		return message.Envelope{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		d.Notify(message.Envelope{Type: message.TypeCancel, Op: op})
		return message.Envelope{}, ctx.Err()
	case <-d.closed:
		return message.Envelope{}, ErrClosed
	}
}

// Speak plays an utterance on the client and waits for it to finish. When
// the client has no voice of its own and a server synthesizer is configured,
// the envelope carries rendered audio.
func (d *Device) Speak(ctx context.Context, u voice.Utterance) error {
	env := message.Envelope{Type: message.TypeSpeak, Text: u.Text, Language: u.Language}
	if d.tts != nil && !d.clientSynthesis {
		res, err := d.tts.Synthesize(ctx, u.Text, tts.SynthesizeOpts{Language: u.Language})
		switch {
		case err == nil:
			env.Audio = res.Audio
			env.ContentType = res.ContentType
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			slog.Warn("server synthesis failed, sending text only", "language", u.Language, "error", err)
		}
	}

	reply, err := d.request(ctx, env)
	if err != nil {
		return err
	}
	switch reply.Type {
	case message.TypeSpeechEnd:
		return nil
	case message.TypeSpeechError:
		return fmt.Errorf("client speech: %s", reply.Reason)
	default:
		return fmt.Errorf("unexpected reply %q to speak", reply.Type)
	}
}

// Supported reports whether the client can recognize speech itself or the
// server can transcribe its recordings.
func (d *Device) Supported() bool {
	return d.clientRecognition || d.stt != nil
}

// Recognize runs one recognition attempt on the client, or records on the
// client and transcribes on the server.
func (d *Device) Recognize(ctx context.Context, language string) (string, error) {
	env := message.Envelope{
		Type:      message.TypeListen,
		Language:  language,
		Mode:      message.ListenRecognize,
		TimeoutMS: d.ListenTimeout.Milliseconds(),
	}
	if !d.clientRecognition {
		env.Mode = message.ListenRecord
		env.TimeoutMS = d.recordWindow().Milliseconds()
	}

	reply, err := d.request(ctx, env)
	if err != nil {
		return "", err
	}

	switch reply.Type {
	case message.TypeTranscript:
		return reply.Text, nil
	case message.TypeRecognitionError:
		return "", voice.Fail(voice.ParseReason(reply.Reason), fmt.Errorf("client recognizer: %s", reply.Reason))
	case message.TypeRecording:
		voice.MarkHeard(ctx)
		return d.transcribe(ctx, reply, language)
	default:
		return "", voice.Fail(voice.ReasonNetwork, fmt.Errorf("unexpected reply %q to listen", reply.Type))
	}
}

// recordWindow is how long a recording client may capture. Part of the
// listen timeout is kept back for the upload.
func (d *Device) recordWindow() time.Duration {
	slack := d.ListenTimeout / 5
	if slack > time.Second {
		slack = time.Second
	}
	return d.ListenTimeout - slack
}

func (d *Device) transcribe(ctx context.Context, rec message.Envelope, language string) (string, error) {
	if d.stt == nil {
		return "", voice.ErrUnsupported
	}
	if len(rec.Audio) == 0 {
		return "", voice.ErrNoSpeech
	}
	res, err := d.stt.Transcribe(ctx, rec.Audio, rec.ContentType, stt.TranscribeOpts{Language: language})
	if err != nil {
		return "", voice.Fail(voice.ReasonNetwork, err)
	}
	return res.Text, nil
}

// RequestAccess asks the client for microphone permission. A grant is
// remembered for the rest of the session.
func (d *Device) RequestAccess(ctx context.Context) error {
	d.mu.Lock()
	granted := d.micGranted
	d.mu.Unlock()
	if granted {
		return nil
	}

	reply, err := d.request(ctx, message.Envelope{Type: message.TypeMicPermission})
	if err != nil {
		return err
	}
	if reply.Type != message.TypeMicStatus || !reply.Granted {
		return errors.New("microphone permission denied")
	}

	d.mu.Lock()
	d.micGranted = true
	d.mu.Unlock()
	return nil
}

// CaptureFrame asks the client for one camera frame.
func (d *Device) CaptureFrame(ctx context.Context) ([]byte, string, error) {
	reply, err := d.request(ctx, message.Envelope{Type: message.TypeCapture})
	if err != nil {
		return nil, "", err
	}

	switch reply.Type {
	case message.TypeFrame:
		req := message.VisionRequest{Image: reply.Image, MimeType: reply.MimeType}
		return req.DecodeImage()
	case message.TypeCameraError:
		if isPermissionReason(reply.Reason) {
			return nil, "", ErrCameraDenied
		}
		return nil, "", fmt.Errorf("camera: %s", reply.Reason)
	default:
		return nil, "", fmt.Errorf("unexpected reply %q to capture", reply.Type)
	}
}

// Locate asks the client for its current position.
func (d *Device) Locate(ctx context.Context) (navigation.Point, error) {
	reply, err := d.request(ctx, message.Envelope{Type: message.TypeLocate})
	if err != nil {
		return navigation.Point{}, err
	}
	if reply.Type != message.TypeLocation {
		return navigation.Point{}, fmt.Errorf("%w: %s", ErrLocationDenied, reply.Reason)
	}
	return navigation.Point{Lat: reply.Lat, Lon: reply.Lon}, nil
}

func isPermissionReason(reason string) bool {
	switch strings.ToLower(reason) {
	case "not-allowed", "notallowederror", "permission-denied", "denied":
		return true
	default:
		return false
	}
}
