package voice

import (
	"strings"
	"unicode"
)

// spokenNumbers maps spoken words for 0–5 to their values: English cardinals
// and ordinals, romanised Hindi, and Devanagari, Tamil, Telugu and Kannada
// script forms as recognizers return them.
var spokenNumbers = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,

	"shunya": 0, "ek": 1, "do": 2, "teen": 3, "char": 4, "chaar": 4, "paanch": 5, "panch": 5,
	"pehla": 1, "doosra": 2, "dusra": 2, "teesra": 3, "chautha": 4,

	"शून्य": 0, "एक": 1, "दो": 2, "तीन": 3, "चार": 4, "पांच": 5, "पाँच": 5,
	"पहला": 1, "दूसरा": 2, "तीसरा": 3, "चौथा": 4,

	"ஒன்று": 1, "இரண்டு": 2, "மூன்று": 3, "நான்கு": 4, "ஐந்து": 5,
	"ఒకటి": 1, "రెండు": 2, "మూడు": 3, "నాలుగు": 4, "ఐదు": 5,
	"ಒಂದು": 1, "ಎರಡು": 2, "ಮೂರು": 3, "ನಾಲ್ಕು": 4, "ಐದು": 5,
}

// ParseSpokenNumber extracts a small number from a transcript. Word tokens
// are tried first in order of appearance, then the first run of digits
// (ASCII or Devanagari). ok is false when neither is present; callers should
// re-prompt rather than treat that as an error.
func ParseSpokenNumber(transcript string) (n int, ok bool) {
	tokens := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if v, found := spokenNumbers[tok]; found {
			return v, true
		}
	}
	return firstDigits(transcript)
}

// maxDigits bounds the digit run; longer runs are not menu choices.
const maxDigits = 3

func firstDigits(s string) (int, bool) {
	n, digits := 0, 0
	for _, r := range s {
		d, isDigit := digitValue(r)
		if !isDigit {
			if digits > 0 {
				break
			}
			continue
		}
		digits++
		if digits > maxDigits {
			return 0, false
		}
		n = n*10 + d
	}
	return n, digits > 0
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= '०' && r <= '९':
		return int(r - '०'), true
	default:
		return 0, false
	}
}
