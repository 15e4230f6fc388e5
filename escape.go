package goinflux

import "strings"

// tagEscaper escapes keys and tag values.
var tagEscaper = strings.NewReplacer(`,`, `\,`, ` `, `\ `, `=`, `\=`)

// fieldStringEscaper escapes the contents of a quoted string field value.
var fieldStringEscaper = strings.NewReplacer(`"`, `\"`)

// EscapeKey escapes a tag key, tag value or field key for line protocol.
func EscapeKey(s string) string {
	if !strings.ContainsAny(s, ", =") {
		return s
	}
	return tagEscaper.Replace(s)
}

func appendEscapedKey(dst []byte, s string) []byte {
	if !strings.ContainsAny(s, ", =") {
		return append(dst, s...)
	}
	return append(dst, tagEscaper.Replace(s)...)
}

func appendQuotedString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	if strings.IndexByte(s, '"') < 0 {
		dst = append(dst, s...)
	} else {
		dst = append(dst, fieldStringEscaper.Replace(s)...)
	}
	return append(dst, '"')
}
