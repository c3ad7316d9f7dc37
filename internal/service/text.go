package service

import (
	"strings"
	"unicode/utf8"
)

// storableText reports whether s can be stored in a Postgres TEXT column:
// valid UTF-8 without NUL bytes.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
