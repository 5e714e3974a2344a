package services

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var languageDetectorOnce sync.Once
var languageDetector lingua.LanguageDetector

// DetectLanguage guesses the language of a note's text, returning an ISO
// 639-1 code or an empty string when the text is too short to tell.
func DetectLanguage(content string) string {
	if len(strings.TrimSpace(content)) < 8 {
		return ""
	}

	languageDetectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromAllSpokenLanguages().
			WithLowAccuracyMode().
			Build()
	})

	if language, ok := languageDetector.DetectLanguageOf(content); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}
	return ""
}
