// Package language holds the supported speech languages and the per-client
// language preference store.
package language

import (
	"fmt"
	"strings"
)

// Language is one selectable speech language.
type Language struct {
	Name         string `json:"name"`   // preference value, e.g. "Hindi"
	Native       string `json:"native"` // endonym, e.g. "हिंदी"
	Code         string `json:"code"`   // BCP-47 locale, e.g. "hi-IN"
	Confirmation string `json:"confirmation"`
}

// Base returns the ISO-639-1 part of the locale code.
func (l Language) Base() string {
	base, _, _ := strings.Cut(l.Code, "-")
	return base
}

var supported = []Language{
	{Name: "English", Native: "English", Code: "en-IN", Confirmation: "Language set to English."},
	{Name: "Hindi", Native: "हिंदी", Code: "hi-IN", Confirmation: "हिंदी भाषा चुनी गई।"},
	{Name: "Tamil", Native: "தமிழ்", Code: "ta-IN", Confirmation: "தமிழ் மொழி தேர்ந்தெடுக்கப்பட்டது."},
	{Name: "Telugu", Native: "తెలుగు", Code: "te-IN", Confirmation: "తెలుగు భాష ఎంపిక చేయబడింది."},
	{Name: "Kannada", Native: "ಕನ್ನಡ", Code: "kn-IN", Confirmation: "ಕನ್ನಡ ಭಾಷೆ ಆಯ್ಕೆ ಮಾಡಲಾಗಿದೆ."},
}

// Default is the language used before a preference exists.
var Default = supported[0]

// All returns the supported languages in menu order. Menu numbers start at 1.
func All() []Language {
	return append([]Language(nil), supported...)
}

// Lookup finds a language by name, endonym, locale code or base code.
func Lookup(key string) (Language, bool) {
	key = strings.TrimSpace(key)
	for _, l := range supported {
		if strings.EqualFold(key, l.Name) || key == l.Native ||
			strings.EqualFold(key, l.Code) || strings.EqualFold(key, l.Base()) {
			return l, true
		}
	}
	return Language{}, false
}

// ByNumber returns the language at a 1-based menu position.
func ByNumber(n int) (Language, bool) {
	if n < 1 || n > len(supported) {
		return Language{}, false
	}
	return supported[n-1], true
}

// Match finds the first language whose name or endonym appears in a
// transcript, e.g. "switch to Tamil please".
func Match(transcript string) (Language, bool) {
	lower := strings.ToLower(transcript)
	for _, l := range supported {
		if strings.Contains(lower, strings.ToLower(l.Name)) || strings.Contains(transcript, l.Native) {
			return l, true
		}
	}
	return Language{}, false
}

// MenuPrompt is the spoken menu for voice selection.
func MenuPrompt() string {
	var b strings.Builder
	b.WriteString("Choose a language.")
	for i, l := range supported {
		fmt.Fprintf(&b, " %d, %s.", i+1, l.Name)
	}
	return b.String()
}
