package format

import "strings"

// NormalizeName converts a caller-supplied path into the form stored in
// the archive: forward slashes, no drive letter, no leading or trailing
// slash.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if len(name) >= 2 && name[1] == ':' && isLetter(name[0]) {
		name = name[2:]
	}
	return strings.Trim(name, "/")
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
