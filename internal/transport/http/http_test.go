package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nadzzz/drishti/internal/message"
	"github.com/nadzzz/drishti/internal/transport"
)

// fakeBackend records what the transport decoded and returns canned replies.
type fakeBackend struct {
	vision     *message.VisionRequest
	transcribe *message.TranscribeRequest
	clientID   string
	err        error
}

func (b *fakeBackend) AnalyzeImage(_ context.Context, req *message.VisionRequest) (*message.VisionResponse, error) {
	b.vision = req
	if b.err != nil {
		return nil, b.err
	}
	return &message.VisionResponse{Text: "A crosswalk."}, nil
}

func (b *fakeBackend) Synthesize(_ context.Context, req *message.SpeechRequest) (*message.SpeechResponse, error) {
	return &message.SpeechResponse{Audio: "UklGRg==", ContentType: "audio/wav"}, nil
}

func (b *fakeBackend) Transcribe(_ context.Context, req *message.TranscribeRequest) (*message.TranscribeResponse, error) {
	b.transcribe = req
	return &message.TranscribeResponse{Text: "hello", Language: req.Language}, nil
}

func (b *fakeBackend) Languages() []message.LanguageInfo {
	return []message.LanguageInfo{{Name: "English", Native: "English", Code: "en-IN"}}
}

func (b *fakeBackend) Preference(_ context.Context, clientID string) (*message.LanguagePreference, error) {
	b.clientID = clientID
	if clientID == "" {
		return nil, message.Errorf(http.StatusBadRequest, "client id is required")
	}
	return &message.LanguagePreference{Language: "Hindi", Code: "hi-IN"}, nil
}

func (b *fakeBackend) SetPreference(_ context.Context, clientID string, pref *message.LanguagePreference) (*message.LanguagePreference, error) {
	b.clientID = clientID
	return &message.LanguagePreference{Language: pref.Language, Code: "ta-IN"}, nil
}

// RunSession answers hello with welcome, then echoes taps back as state.
func (b *fakeBackend) RunSession(_ context.Context, conn transport.SessionConn) error {
	var hello message.Envelope
	if err := conn.ReadJSON(&hello); err != nil {
		return err
	}
	if err := conn.WriteJSON(message.Envelope{Type: message.TypeWelcome, ClientID: hello.ClientID}); err != nil {
		return err
	}
	for {
		var env message.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		if err := conn.WriteJSON(message.Envelope{Type: message.TypeState, State: env.Control}); err != nil {
			return err
		}
	}
}

func newServer(t *testing.T, backend transport.Backend, origins ...string) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(New(0, origins).Handler(ctx, backend))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

func TestVisionRoute(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	resp, err := http.Post(srv.URL+"/api/vision", "application/json",
		strings.NewReader(`{"image":"aGk=","prompt":"Describe"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body message.VisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Text != "A crosswalk." || backend.vision.Prompt != "Describe" || backend.vision.Image != "aGk=" {
		t.Fatalf("body = %+v, backend saw %+v", body, backend.vision)
	}
}

func TestErrorStatusAndBody(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", message.Errorf(http.StatusUnauthorized, "Vision API key invalid"), http.StatusUnauthorized},
		{"rate limited", message.Errorf(http.StatusTooManyRequests, "Vision service rate limit exceeded"), http.StatusTooManyRequests},
		{"plain error", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		srv := newServer(t, &fakeBackend{err: tc.err})
		resp, err := http.Post(srv.URL+"/api/vision", "application/json", strings.NewReader(`{"image":"x","prompt":"y"}`))
		if err != nil {
			t.Fatal(err)
		}
		var body message.APIError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.status)
		}
		if body.Message == "" {
			t.Errorf("%s: empty error body", tc.name)
		}
	}
}

func TestMalformedJSON(t *testing.T) {
	srv := newServer(t, &fakeBackend{})
	resp, err := http.Post(srv.URL+"/api/vision", "application/json", strings.NewReader(`{"image":`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTranscribeRawAudio(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/stt", bytes.NewReader([]byte("OggS")))
	req.Header.Set("Content-Type", "audio/ogg")
	req.Header.Set(HeaderLanguage, "ta-IN")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := backend.transcribe
	if string(got.Audio) != "OggS" || got.ContentType != "audio/ogg" || got.Language != "ta-IN" {
		t.Fatalf("backend saw %+v", got)
	}
}

func TestPreferenceRoutes(t *testing.T) {
	backend := &fakeBackend{}
	srv := newServer(t, backend)

	resp, err := http.Get(srv.URL + "/api/preferences/language?client_id=phone-7")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || backend.clientID != "phone-7" {
		t.Fatalf("GET status = %d, client = %q", resp.StatusCode, backend.clientID)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/preferences/language", strings.NewReader(`{"language":"Tamil"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderClient, "phone-8")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var pref message.LanguagePreference
	_ = json.NewDecoder(resp.Body).Decode(&pref)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || backend.clientID != "phone-8" || pref.Code != "ta-IN" {
		t.Fatalf("PUT status = %d, client = %q, pref = %+v", resp.StatusCode, backend.clientID, pref)
	}

	resp, err = http.Get(srv.URL + "/api/preferences/language")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("GET without client status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionWebSocket(t *testing.T) {
	srv := newServer(t, &fakeBackend{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(message.Envelope{Type: message.TypeHello, ClientID: "phone-9"}); err != nil {
		t.Fatal(err)
	}
	var welcome message.Envelope
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != message.TypeWelcome || welcome.ClientID != "phone-9" {
		t.Fatalf("welcome = %+v", welcome)
	}

	if err := conn.WriteJSON(message.Envelope{Type: message.TypeTap, Control: "describe"}); err != nil {
		t.Fatal(err)
	}
	var state message.Envelope
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatal(err)
	}
	if state.State != "describe" {
		t.Fatalf("echo = %+v", state)
	}
}

func TestSessionRejectsForeignOrigin(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, "https://drishti.example")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Dial() succeeded from a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v, want 403", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, "https://drishti.example")

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/vision", nil)
	req.Header.Set("Origin", "https://drishti.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://drishti.example" {
		t.Fatalf("allow origin = %q", got)
	}
}
