package voice

import (
	"errors"
	"strings"
)

// Reason is a caller-visible failure reason for a speak or listen operation.
type Reason string

const (
	ReasonNoSpeech     Reason = "no-speech"
	ReasonAudioCapture Reason = "audio-capture"
	ReasonNotAllowed   Reason = "not-allowed"
	ReasonNetwork      Reason = "network"
	ReasonAborted      Reason = "aborted"
	ReasonUnsupported  Reason = "unsupported"
)

// Failure is the error returned by Listen and SpeakAndListen. It compares
// equal under errors.Is to the sentinel carrying the same reason.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return string(f.Reason) + ": " + f.Err.Error()
	}
	return string(f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches sentinels (failures without a wrapped cause) by reason.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Err == nil && t.Reason == f.Reason
}

var (
	ErrNoSpeech     = &Failure{Reason: ReasonNoSpeech}
	ErrAudioCapture = &Failure{Reason: ReasonAudioCapture}
	ErrNotAllowed   = &Failure{Reason: ReasonNotAllowed}
	ErrNetwork      = &Failure{Reason: ReasonNetwork}
	ErrAborted      = &Failure{Reason: ReasonAborted}
	ErrUnsupported  = &Failure{Reason: ReasonUnsupported}
)

// ErrRetriesExhausted is wrapped together with the last failure when
// SpeakAndListen runs out of attempts.
var ErrRetriesExhausted = errors.New("voice: retries exhausted")

// Fail wraps err with a failure reason.
func Fail(reason Reason, err error) error {
	return &Failure{Reason: reason, Err: err}
}

// ParseReason maps a recognizer-reported reason string to a Reason.
// Unknown values map to ReasonNetwork.
func ParseReason(s string) Reason {
	switch r := Reason(strings.ToLower(strings.TrimSpace(s))); r {
	case ReasonNoSpeech, ReasonAudioCapture, ReasonNotAllowed, ReasonNetwork, ReasonAborted, ReasonUnsupported:
		return r
	case "service-not-allowed":
		return ReasonNotAllowed
	default:
		return ReasonNetwork
	}
}

// ReasonOf extracts the failure reason from err, or "" if err is not a Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

// DefaultRetryable reports whether a listen failure may be retried by
// SpeakAndListen: silence, network trouble, and a recognizer-level
// permission refusal.
func DefaultRetryable(err error) bool {
	switch ReasonOf(err) {
	case ReasonNoSpeech, ReasonNetwork, ReasonNotAllowed:
		return true
	default:
		return false
	}
}
