package transcribe

import (
	"strings"
)

var languageNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"hi": "Hindi",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// LanguageName returns the English name for a language code such as "en" or
// "en-US". Engines reporting full names (e.g. "english") are accepted too.
// Unrecognized codes map to LanguageUnknown.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	for _, name := range languageNames {
		if strings.EqualFold(name, code) {
			return name
		}
	}
	return LanguageUnknown
}
