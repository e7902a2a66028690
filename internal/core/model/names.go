package model

import (
	"strings"
	"unicode"
)

// CanonicalName normalises a generator-proposed entity name. Hyphens and
// underscores become word breaks, newlines are dropped, and multi-word names
// are joined in CamelCase: "ballet-dancer" and "ballet dancer" both become
// "BalletDancer". Single words keep their spelling.
func CanonicalName(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ", "\n", "", "\r", "").Replace(s)
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		r := []rune(w)
		if unicode.IsLower(r[0]) {
			r[0] = unicode.ToUpper(r[0])
		}
		b.WriteString(string(r))
	}
	return b.String()
}

// NameKey is the case-insensitive identity of an entity name.
func NameKey(s string) string {
	return strings.ToLower(CanonicalName(s))
}

// NameTokens splits a name into lower-case words on separators and CamelCase
// boundaries. "BalletDancer" -> [ballet dancer], "NASAProgram" -> [nasa program].
func NameTokens(s string) []string {
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

// NormalizeText lower-cases s, folds unicode dashes and spaces to ASCII and
// collapses whitespace. Used for entity-string comparison.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '\u2010' || r == '\u2011' || r == '\u2012' || r == '\u2013' || r == '\u2014':
			b.WriteByte('-')
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF':
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
