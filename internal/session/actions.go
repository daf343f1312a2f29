package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/drishti/internal/language"
	"github.com/nadzzz/drishti/internal/metrics"
	"github.com/nadzzz/drishti/internal/navigation"
	"github.com/nadzzz/drishti/internal/vision"
	"github.com/nadzzz/drishti/internal/voice"
)

func (s *Session) handler(control string) func(ctx context.Context) error {
	switch control {
	case ControlDescribe:
		return func(ctx context.Context) error { return s.analyze(ctx, vision.TaskDescribe) }
	case ControlRead:
		return func(ctx context.Context) error { return s.analyze(ctx, vision.TaskReadText) }
	case ControlNavigate:
		return s.navigate
	case ControlLanguage:
		return s.chooseLanguage
	default:
		return func(context.Context) error { return fmt.Errorf("unknown control %q", control) }
	}
}

// analyze captures a frame, sends it to the vision service and speaks the
// reply. Vision failures are spoken as their fixed sentence.
func (s *Session) analyze(ctx context.Context, task vision.Task) error {
	img, mimeType, err := s.dev.CaptureFrame(ctx)
	if err != nil {
		if errors.Is(err, ErrCameraDenied) {
			return s.say(ctx, CameraPermissionPrompt)
		}
		return err
	}

	text, err := s.svc.Vision.Analyze(ctx, vision.Request{
		Image:    img,
		MimeType: mimeType,
		Prompt:   vision.Prompt(task, s.language().Name),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var verr *vision.Error
		if !errors.As(err, &verr) {
			verr = &vision.Error{Kind: vision.KindUnavailable, Err: err}
		}
		s.log.Warn("vision analysis failed", "task", task, "error", verr.Detail())
		if sayErr := s.say(ctx, verr.Error()); sayErr != nil {
			return sayErr
		}
		return verr
	}

	return s.say(ctx, text)
}

// navigate asks for a destination, routes to it from the client's position
// and speaks the summary with the first few instructions.
func (s *Session) navigate(ctx context.Context) error {
	if s.svc.Navigator == nil {
		return s.say(ctx, NavigationUnavailable)
	}

	dest, err := s.voice.SpeakAndListen(ctx, DestinationPrompt, s.opts.Retries)
	if err != nil {
		return s.listenFailed(ctx, err)
	}
	s.log.Info("navigation requested", "destination", dest)

	from, err := s.dev.Locate(ctx)
	if err != nil {
		if errors.Is(err, ErrLocationDenied) {
			return s.say(ctx, LocationPermissionPrompt)
		}
		return err
	}

	route, err := s.svc.Navigator.Directions(ctx, from, dest)
	switch {
	case err == nil:
		return s.say(ctx, route.Spoken(spokenSteps))
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, navigation.ErrPlaceNotFound):
		return s.say(ctx, "I could not find "+strings.TrimSpace(dest)+".")
	case errors.Is(err, navigation.ErrNoRoute):
		return s.say(ctx, "No walking route found.")
	default:
		s.log.Warn("directions failed", "error", err)
		if sayErr := s.say(ctx, "Navigation service unavailable."); sayErr != nil {
			return sayErr
		}
		return err
	}
}

// chooseLanguage speaks the language menu and accepts a menu number or a
// language name. The choice is stored and confirmed in the new language.
func (s *Session) chooseLanguage(ctx context.Context) error {
	answer, err := s.voice.SpeakAndListen(ctx, language.MenuPrompt(), s.opts.Retries)
	if err != nil {
		return s.listenFailed(ctx, err)
	}

	l, ok := pickLanguage(answer)
	if !ok {
		s.log.Debug("language answer not recognized", "answer", answer)
		return s.say(ctx, NotRecognized)
	}

	if s.svc.Store != nil {
		if err := s.svc.Store.Set(ctx, s.id, l.Name); err != nil {
			s.log.Warn("storing language preference failed", "language", l.Name, "error", err)
		}
	}
	s.setLanguage(l)
	s.log.Info("language changed", "language", l.Code)
	return s.say(ctx, l.Confirmation)
}

// pickLanguage prefers a language name over a menu number, since some
// number words ("do") are also ordinary English.
func pickLanguage(answer string) (language.Language, bool) {
	if l, ok := language.Match(answer); ok {
		return l, true
	}
	if n, ok := voice.ParseSpokenNumber(answer); ok {
		return language.ByNumber(n)
	}
	return language.Language{}, false
}

// listenFailed speaks the outcome of a failed prompt. Permission denial has
// already been spoken by the coordinator.
func (s *Session) listenFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, voice.ErrAborted) {
		return nil
	}
	if reason := voice.ReasonOf(err); reason != "" {
		metrics.RecognitionFailuresTotal.WithLabelValues(string(reason)).Inc()
	}

	switch {
	case errors.Is(err, voice.ErrUnsupported):
		return s.say(ctx, VoiceUnavailable)
	case errors.Is(err, voice.ErrAudioCapture):
		return nil
	default:
		return s.say(ctx, NotRecognized)
	}
}
