// Package utf16len counts the UTF-16 code units a Go (UTF-8) string would
// occupy once re-encoded as UTF-16. This is the unit the controlling
// process uses for its write-credit accounting, and differs both from the
// UTF-8 byte length and from the code-point count for any character outside
// the Basic Multilingual Plane.
package utf16len

import "unicode/utf8"

// Len returns the number of UTF-16 code units s would occupy. Characters in
// the Basic Multilingual Plane cost one unit; characters above it (encoded
// as a UTF-16 surrogate pair) cost two.
func Len(s string) int {
	n := 0
	for _, r := range s {
		if r == utf8.RuneError {
			// A rune decode failure from ranging over a string still costs
			// one UTF-16 unit in the replacement-character form the
			// incremental decoder would have produced for it.
			n++
			continue
		}
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
