// Package uri escapes strings the way browsers' encodeURIComponent does, so values
// written here decode identically in web clients and wa.me links.
package uri

import "strings"

const unreserved = "-_.!~*'()"

// EscapeComponent escapes every byte outside A-Z a-z 0-9 and -_.!~*'() as %XX.
func EscapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') || strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}
