package models

import (
	"fmt"
	"strings"
)

// Language is one of the six languages the assistant answers in.
type Language struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Code string `json:"code"`
}

var (
	English   = Language{Key: "english", Name: "English", Code: "en"}
	Tamil     = Language{Key: "tamil", Name: "தமிழ்", Code: "ta"}
	Hindi     = Language{Key: "hindi", Name: "हिंदी", Code: "hi"}
	Telugu    = Language{Key: "telugu", Name: "తెలుగు", Code: "te"}
	Malayalam = Language{Key: "malayalam", Name: "മലയാളം", Code: "ml"}
	Kannada   = Language{Key: "kannada", Name: "ಕನ್ನಡ", Code: "kn"}
)

// DefaultLanguage is used for new sessions.
var DefaultLanguage = English

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{English, Tamil, Hindi, Malayalam, Telugu, Kannada}
}

// ParseLanguage resolves a language by key ("tamil") or code ("ta").
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range Languages() {
		if l.Key == s || l.Code == s {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("unsupported language: %q", s)
}

// SpeechCode is the recognition locale, e.g. "ta-IN".
func (l Language) SpeechCode() string {
	return l.Code + "-IN"
}

func (l Language) IsZero() bool {
	return l.Code == ""
}
