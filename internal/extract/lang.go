package extract

import (
	"strings"

	"golang.org/x/text/language"
)

// tesseractLanguages maps base language tags to tesseract traineddata
// names.
var tesseractLanguages = map[string]string{
	"zh": "chi_sim",
	"en": "eng",
	"ja": "jpn",
	"ko": "kor",
	"ru": "rus",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
}

// TesseractLang resolves a configured language tag ("zh", "zh-CN", "en-US")
// to a tesseract traineddata name. Values that do not parse as a tag pass
// through unchanged so traineddata names like "chi_tra" can be configured
// directly.
func TesseractLang(tag string) string {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return "chi_sim"
	}
	// Traineddata names carry underscores; never run those through the tag
	// parser.
	if strings.Contains(trimmed, "_") {
		return trimmed
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	base, _ := parsed.Base()
	if name, ok := tesseractLanguages[base.String()]; ok {
		return name
	}
	return trimmed
}

// WhisperLang reduces a configured language tag to the two-letter code
// whisper expects.
func WhisperLang(tag string) string {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return "zh"
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	base, _ := parsed.Base()
	return base.String()
}
