package extract

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"doc-harvester/pkg/utils"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// languageDetector builds the lingua detector once per process; model loading
// is expensive.
func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code of the dominant language of text.
// Empty input is an error; an inconclusive detection reports "unknown".
func DetectLanguage(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", utils.ErrEmptyText
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return "unknown", nil
	}
	return strings.ToLower(lang.IsoCode639_1().String()), nil
}
