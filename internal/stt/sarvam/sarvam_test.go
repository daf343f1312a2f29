package sarvam

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/drishti/internal/config"
	"github.com/nadzzz/drishti/internal/provider"
	"github.com/nadzzz/drishti/internal/stt"
)

// TestTranscribeUploadsAudio verifies the multipart upload and the result.
func TestTranscribeUploadsAudio(t *testing.T) {
	var gotKey, gotModel, gotLang, gotType string
	var gotAudio []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-subscription-key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language_code")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		gotType = hdr.Header.Get("Content-Type")
		gotAudio, _ = io.ReadAll(f)
		_, _ = w.Write([]byte(`{"transcript":"रेलवे स्टेशन","language_code":"hi-IN"}`))
	}))
	defer srv.Close()

	tr := New(config.SarvamConfig{APIKey: "k", Endpoint: srv.URL, Model: "saarika:v1"})
	res, err := tr.Transcribe(context.Background(), []byte("RIFFdata"), "audio/wav", stt.TranscribeOpts{Language: "hi-IN"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Text != "रेलवे स्टेशन" || res.Language != "hi-IN" {
		t.Fatalf("result = %+v", res)
	}
	if gotKey != "k" || gotModel != "saarika:v1" || gotLang != "hi-IN" {
		t.Fatalf("key = %q, model = %q, language = %q", gotKey, gotModel, gotLang)
	}
	if gotType != "audio/wav" || string(gotAudio) != "RIFFdata" {
		t.Fatalf("file part = %q %q", gotType, gotAudio)
	}
}

func TestTranscribeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := New(config.SarvamConfig{APIKey: "k", Endpoint: srv.URL})
	_, err := tr.Transcribe(context.Background(), []byte("x"), "audio/webm", stt.TranscribeOpts{})
	if provider.HTTPStatus(err) != http.StatusTooManyRequests {
		t.Fatalf("Transcribe() error = %v, want rate limit", err)
	}
}

func TestTranscribeWithoutKey(t *testing.T) {
	tr := New(config.SarvamConfig{})
	if _, err := tr.Transcribe(context.Background(), nil, "", stt.TranscribeOpts{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("Transcribe() error = %v, want ErrNoAPIKey", err)
	}
}
