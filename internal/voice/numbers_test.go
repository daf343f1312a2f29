package voice

import (
	"errors"
	"testing"
)

func TestParseSpokenNumber(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"2", 2, true},
		{"two", 2, true},
		{"Two.", 2, true},
		{"do", 2, true},
		{"दो", 2, true},
		{"second", 2, true},
		{"option number three please", 3, true},
		{"இரண்டு", 2, true},
		{"రెండు", 2, true},
		{"ಎರಡು", 2, true},
		{"number ४", 4, true},
		{"I pick 5", 5, true},
		{"12", 12, true},
		{"room 1234", 0, false},
		{"99999999999999999999999", 0, false},
		{"hello world", 0, false},
		{"I want to go", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseSpokenNumber(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseSpokenNumber(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestParseReason(t *testing.T) {
	cases := map[string]Reason{
		"no-speech":           ReasonNoSpeech,
		"NOT-ALLOWED":         ReasonNotAllowed,
		"service-not-allowed": ReasonNotAllowed,
		"audio-capture":       ReasonAudioCapture,
		"bad-grammar":         ReasonNetwork,
	}
	for in, want := range cases {
		if got := ParseReason(in); got != want {
			t.Errorf("ParseReason(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestFailureMatchesSentinel verifies wrapped failures compare equal to the
// sentinel carrying the same reason.
func TestFailureMatchesSentinel(t *testing.T) {
	err := Fail(ReasonNoSpeech, errors.New("silence"))
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatal("wrapped no-speech does not match ErrNoSpeech")
	}
	if errors.Is(err, ErrNetwork) {
		t.Fatal("no-speech matched ErrNetwork")
	}
	if !DefaultRetryable(err) {
		t.Fatal("no-speech should be retryable")
	}
	if DefaultRetryable(ErrAudioCapture) {
		t.Fatal("audio-capture should not be retryable")
	}
}
