// Package expr expands ${env.KEY} references in configuration text.
package expr

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// ExpandEnv replaces every ${env.KEY} with the value of environment variable KEY
func ExpandEnv(text string) string {
	return Expand(text, os.Getenv)
}

// Expand replaces every ${env.KEY} with lookup(KEY).  An unterminated
// reference is copied verbatim, a reference with an illegal key keeps its
// prefix and the scan resumes right after it.
func Expand(text string, lookup func(string) string) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var out strings.Builder
	out.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, envPrefix)
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:start])
		keyStart := start + len(envPrefix)
		end := strings.IndexByte(rest[keyStart:], '}')
		if end < 0 {
			out.WriteString(rest[start:])
			return out.String()
		}
		key := rest[keyStart : keyStart+end]
		if !isKey(key) {
			out.WriteString(envPrefix)
			rest = rest[keyStart:]
			continue
		}
		out.WriteString(lookup(key))
		rest = rest[keyStart+end+1:]
	}
}

func isKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
