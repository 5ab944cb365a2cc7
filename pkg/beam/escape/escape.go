// Package escape implements the HTML escaping used for all interpolated text.
//
// Five bytes are replaced: & < > " and '. The scan is byte-wise, so multi-byte
// UTF-8 sequences pass through untouched and input that needs no escaping is
// returned without allocating.
package escape

import "strings"

// replacements is indexed by byte; a non-empty entry marks a byte that must be escaped.
var replacements = [256]string{
	'&':  "&amp;",
	'<':  "&lt;",
	'>':  "&gt;",
	'"':  "&#34;",
	'\'': "&#39;",
}

// Needed reports whether s contains any byte that HTML would escape.
func Needed(s string) bool {
	return firstSpecial(s) >= 0
}

// HTML returns s with & < > " ' replaced by their entities.
// When nothing needs escaping the input string itself is returned.
func HTML(s string) string {
	first := firstSpecial(s)
	if first < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/8 + 8)
	b.WriteString(s[:first])
	writeFrom(&b, s, first)
	return b.String()
}

// WriteHTML appends the escaped form of s to b.
func WriteHTML(b *strings.Builder, s string) {
	first := firstSpecial(s)
	if first < 0 {
		b.WriteString(s)
		return
	}
	b.WriteString(s[:first])
	writeFrom(b, s, first)
}

func firstSpecial(s string) int {
	for i := 0; i < len(s); i++ {
		if replacements[s[i]] != "" {
			return i
		}
	}
	return -1
}

func writeFrom(b *strings.Builder, s string, start int) {
	last := start
	for i := start; i < len(s); i++ {
		r := replacements[s[i]]
		if r == "" {
			continue
		}
		b.WriteString(s[last:i])
		b.WriteString(r)
		last = i + 1
	}
	b.WriteString(s[last:])
}
