// Package security holds the input sanitizer, the structural validators that gate
// every write, and the translation of backend errors into user-safe messages.
package security

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSanitizedLength is the hard ceiling, in runes, of any sanitized string.
const MaxSanitizedLength = 1000

var (
	angleBrackets  = regexp.MustCompile(`[<>]`)
	javascriptURI  = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize strips unsafe characters from free-text input.
//
// It trims whitespace, removes angle brackets, "javascript:" schemes and inline
// event handler patterns such as "onclick=", then truncates the result to
// MaxSanitizedLength runes. Removal runs until nothing changes, so applying
// Sanitize to its own output is a no-op.
func Sanitize(input string) string {
	s := input
	for {
		next := strings.TrimSpace(s)
		next = angleBrackets.ReplaceAllString(next, "")
		next = javascriptURI.ReplaceAllString(next, "")
		next = eventHandlerRe.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}

	return truncateRunes(s, MaxSanitizedLength)
}

// SanitizeValue sanitizes v when it is a string and returns "" otherwise.
func SanitizeValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return Sanitize(s)
	case *string:
		if s == nil {
			return ""
		}
		return Sanitize(*s)
	default:
		return ""
	}
}

// truncateRunes cuts s to at most n runes and drops whitespace left at the cut.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimRightFunc(s[:i], unicode.IsSpace)
		}
		count++
	}
	return s
}
