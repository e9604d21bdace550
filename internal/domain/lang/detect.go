package lang

import (
	"strings"
	"unicode"
)

// Code bahasa yang didukung
type Code string

const (
	English    Code = "en"
	Spanish    Code = "es"
	French     Code = "fr"
	German     Code = "de"
	Indonesian Code = "id"
)

// markers are high-frequency function words that rarely appear outside their
// language. Counting hits is crude next to a statistical detector but fully
// deterministic and keyword-sized input is all we ever see.
var markers = map[Code][]string{
	English:    {"the", "and", "for", "with", "best", "how", "what", "near", "is", "of"},
	Spanish:    {"el", "la", "los", "las", "para", "mejor", "como", "que", "cerca", "donde"},
	French:     {"le", "les", "des", "pour", "meilleur", "comment", "est", "une", "avec", "chez"},
	German:     {"der", "die", "das", "und", "für", "beste", "wie", "ist", "mit", "nicht"},
	Indonesian: {"yang", "dan", "untuk", "dengan", "terbaik", "cara", "apa", "di", "harga", "dari"},
}

// localeByCode maps a detected language to the default search locale.
var localeByCode = map[Code]string{
	English:    "us",
	Spanish:    "es",
	French:     "fr",
	German:     "de",
	Indonesian: "id",
}

// Detect guesses the language of text by marker-word frequency. English is
// the fallback for empty input and ties, matching how the rest of the
// system defaults.
func Detect(text string) Code {
	words := tokenize(text)
	if len(words) == 0 {
		return English
	}

	counts := map[Code]int{}
	for _, w := range words {
		for code, set := range markers {
			for _, m := range set {
				if w == m {
					counts[code]++
					break
				}
			}
		}
	}

	best := English
	bestN := counts[English]
	// deterministic winner: fixed iteration order over the codes
	for _, code := range []Code{Spanish, French, German, Indonesian} {
		if counts[code] > bestN {
			best = code
			bestN = counts[code]
		}
	}
	return best
}

// DefaultLocale returns the search locale for a detected language.
func DefaultLocale(c Code) string {
	if l, ok := localeByCode[c]; ok {
		return l
	}
	return "us"
}

// LocaleForText is the one-call form used at submission time.
func LocaleForText(text string) string {
	return DefaultLocale(Detect(text))
}

// Supported lists the detectable languages.
func Supported() []Code {
	return []Code{English, Spanish, French, German, Indonesian}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
