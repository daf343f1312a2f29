// Package vision defines the image analysis contract and the user-facing
// failure categories of the vision upstream.
package vision

import (
	"context"
	"fmt"
)

// Task selects the instruction sent along with a frame.
type Task string

const (
	TaskDescribe Task = "describe"
	TaskReadText Task = "read"
)

// Request is one image analysis call.
type Request struct {
	Image    []byte
	MimeType string
	Prompt   string
}

// Analyzer turns an image and an instruction into descriptive text.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// Kind classifies a vision failure.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindRateLimit
	KindUnavailable
	KindNetwork
)

// Error is a vision failure carrying one of the fixed user-facing sentences.
type Error struct {
	Kind   Kind
	Status int // upstream HTTP status, 0 when no response was received
	Err    error
}

// Error returns the sentence spoken to the user.
func (e *Error) Error() string {
	switch e.Kind {
	case KindAuth:
		return "Vision API key invalid"
	case KindRateLimit:
		return "Vision service rate limit exceeded"
	case KindNetwork:
		return "Network connection issue"
	default:
		return "Vision service temporarily unavailable"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Detail includes the underlying cause, for logs.
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Error()
	}
	return fmt.Sprintf("%s (status %d): %v", e.Error(), e.Status, e.Err)
}

// Retryable reports whether another attempt may succeed. Credential
// problems never resolve by retrying.
func (e *Error) Retryable() bool {
	return e.Kind != KindAuth
}

// Prompt builds the instruction for a task, asking for the reply in the
// given language name (e.g. "Hindi").
func Prompt(task Task, languageName string) string {
	var p string
	switch task {
	case TaskReadText:
		p = "Read out all legible text in this image, in natural reading order. " +
			"If there is no text, say so briefly."
	default:
		p = "Describe this scene for a visually impaired person in two or three short sentences. " +
			"Mention obstacles, people and anything directly ahead first."
	}
	if languageName != "" && languageName != "English" {
		p += " Respond in " + languageName + "."
	}
	return p
}
