// Package jsonrepair recovers structured objects from messy LLM replies. The
// parser degrades through repair strategies and, when all of them fail, hands
// back a well-formed fallback shape so a malformed reply never aborts a batch.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackNote marks objects produced by the fallback strategy. Callers detect
// degraded output by comparing confidence_notes against this value.
const FallbackNote = "Failed to parse response - using fallback structure"

var (
	fenceRe         = regexp.MustCompile("```(?:json)?")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	// Matches object literals with up to one level of nesting, enough for
	// the flat reply shapes the prompts request.
	objectRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// Parse extracts a JSON object from raw, trying strategies in order: direct
// unmarshal, cleaned unmarshal, object-literal extraction, and finally a
// fallback object carrying listKeys as empty lists. The second return is false
// only when the fallback was used. Parse never fails.
func Parse(raw string, listKeys []string) (map[string]any, bool) {
	if obj := tryUnmarshal(raw); obj != nil {
		return obj, true
	}
	if obj := tryUnmarshal(Clean(raw)); obj != nil {
		return obj, true
	}
	for _, candidate := range objectRe.FindAllString(raw, -1) {
		if obj := tryUnmarshal(candidate); obj != nil {
			return obj, true
		}
		if obj := tryUnmarshal(Clean(candidate)); obj != nil {
			return obj, true
		}
	}
	return Fallback(listKeys), false
}

// Clean applies textual repairs that fix the common ways model replies break:
// markdown fences, prose around the object, trailing commas, and an unclosed
// string value.
func Clean(raw string) string {
	s := fenceRe.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)

	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}

	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return repairOddQuotes(s)
}

// Fallback returns the degraded-output object: every expected list key empty
// and confidence_notes set to FallbackNote.
func Fallback(listKeys []string) map[string]any {
	obj := make(map[string]any, len(listKeys)+1)
	for _, k := range listKeys {
		obj[k] = []any{}
	}
	obj["confidence_notes"] = FallbackNote
	return obj
}

// IsFallback reports whether obj came from the fallback strategy.
func IsFallback(obj map[string]any) bool {
	note, _ := obj["confidence_notes"].(string)
	return note == FallbackNote
}

func tryUnmarshal(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// repairOddQuotes closes a dangling string by inserting a quote before the
// first delimiter following the last (odd) quote.
func repairOddQuotes(s string) string {
	count := 0
	last := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			count++
			last = i
		}
	}
	if count%2 == 0 {
		return s
	}
	for i := last + 1; i < len(s); i++ {
		switch s[i] {
		case ',', '}', ']':
			return s[:i] + `"` + s[i:]
		}
	}
	return s + `"`
}
