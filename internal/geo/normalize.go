// Package geo validates city-country assignments against a knowledge base of
// known geographic mappings and normalizes place names for comparison.
package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctReplacer = strings.NewReplacer(" ", "", "-", "", ".", "", ",", "")

// countryAliases folds common country name variations onto the canonical
// spelling used by knowledge-base values.
var countryAliases = map[string]string{
	"unitedstates":          "usa",
	"unitedstatesofamerica": "usa",
	"us":                    "usa",
	"unitedkingdom":         "united kingdom",
	"uk":                    "united kingdom",
	"greatbritain":          "united kingdom",
	"britain":               "united kingdom",
	"southkorea":                       "republic of korea",
	"korea":                            "republic of korea",
	"republicofkorea":                  "republic of korea",
	"northkorea":                       "democratic peoples republic of korea",
	"democraticpeoplesrepublicofkorea": "democratic peoples republic of korea",
	"drc":                              "democratic republic of congo",
	"drcongo":                          "democratic republic of congo",
	"democraticrepublicofcongo":        "democratic republic of congo",
	"democraticrepublicofthecongo":     "democratic republic of congo",
	"czechrepublic":                    "czech republic",
	"czechia":                          "czech republic",
	"uae":                              "united arab emirates",
	"unitedarabemirates":               "united arab emirates",
	"russianfederation":                "russia",
}

// NormalizeLocation reduces a place name to a comparison key: lowercased,
// diacritics folded, spaces and common punctuation removed. "Petropavlovsk-
// Kamchatsky" and "petropavlovsk kamchatsky" normalize to the same key.
func NormalizeLocation(name string) string {
	s := foldDiacritics(strings.ToLower(strings.TrimSpace(name)))
	return punctReplacer.Replace(s)
}

// NormalizeCountry normalizes like NormalizeLocation and then resolves common
// aliases, so "UK", "Britain", and "United Kingdom" compare equal.
func NormalizeCountry(country string) string {
	s := foldDiacritics(strings.ToLower(strings.TrimSpace(country)))
	s = punctReplacer.Replace(s)
	if canonical, ok := countryAliases[s]; ok {
		return canonical
	}
	return s
}

// foldDiacritics strips combining marks: NFD decomposition, drop the marks,
// recompose.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
