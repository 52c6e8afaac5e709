package format

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrNotCP437 is returned when text cannot be represented in code page 437.
var ErrNotCP437 = errors.New("text not representable in code page 437")

// DecodeText converts a stored name or comment to a string.
// Without the UTF-8 flag the bytes are interpreted as code page 437.
func DecodeText(b []byte, isUTF8 bool) string {
	if isUTF8 || isASCII(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(charmap.CodePage437.DecodeByte(c))
	}
	return sb.String()
}

// EncodeText converts s to stored bytes in the requested charset.
func EncodeText(s string, isUTF8 bool) ([]byte, error) {
	if isUTF8 || isASCII([]byte(s)) {
		return []byte(s), nil
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := charmap.CodePage437.EncodeRune(r)
		if !ok {
			return nil, ErrNotCP437
		}
		out = append(out, c)
	}
	return out, nil
}

// NeedsUTF8 reports whether any of the strings contains non-ASCII text and
// so must be stored with the UTF-8 flag set.
func NeedsUTF8(texts ...string) bool {
	for _, s := range texts {
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return true
			}
		}
	}
	return false
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
