package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCityName returns the canonical form of a city name: surrounding
// whitespace trimmed, diacritics removed, title-cased. It is the stored name
// and the lookup key, so "Timișoara", "timisoara" and "TIMIȘOARA" collide.
func NormalizeCityName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Transformers and casers keep state; build fresh ones per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}
	return cases.Title(language.Und).String(plain)
}
