package i18n

import (
	"golang.org/x/text/language"
)

var matcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the matcher's default
	language.Hindi,
	language.Bengali,
	language.Tamil,
	language.Telugu,
	language.Marathi,
})

// FromAcceptLanguage picks the best supported locale for an Accept-Language
// header. ok is false when nothing matched with at least low confidence.
func FromAcceptLanguage(header string) (Locale, bool) {
	if header == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return Languages[idx].Code, true
}

// Resolve applies the locale precedence: explicit choice, stored preference,
// Accept-Language, then English.
func Resolve(explicit string, stored Locale, acceptLanguage string) Locale {
	if l, err := ParseLocale(explicit); err == nil {
		return l
	}
	if stored.IsSupported() {
		return stored
	}
	if l, ok := FromAcceptLanguage(acceptLanguage); ok {
		return l
	}
	return Fallback
}
