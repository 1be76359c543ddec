package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// honorifics are stripped from the front of a raw name before tokenizing.
var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "prof": {}, "adv": {}, "rev": {},
}

// NormalizeName prepares a raw director name for classification:
//   - Unicode NFKC fold (compatibility decomposition + canonical composition)
//   - trims leading/trailing whitespace and collapses internal runs of spaces
//   - lowercases
//   - strips a single leading honorific token (Mr, Dr, Prof, ...); a
//     name that is only an honorific normalizes to ""
//
// Hyphens and apostrophes inside a name are preserved; they are
// meaningful in South African surnames (e.g. "Nel-Botha").
func NormalizeName(raw string) string {
	text := norm.NFKC.String(raw)
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = collapseSpaces(text)

	tokens := strings.Split(text, " ")
	first := strings.TrimSuffix(tokens[0], ".")
	if _, ok := honorifics[first]; ok {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

// collapseSpaces compresses runs of whitespace into a single ' '.
func collapseSpaces(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits a normalized name into its constituent name tokens.
func Tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// Surname returns the last token of a normalized full name, which the
// rule classifier treats as the highest-priority signal.
func Surname(normalized string) string {
	tokens := Tokenize(normalized)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
