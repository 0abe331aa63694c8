package gmail

import (
	"encoding/base64"
	"mime"
	"strings"
	"unicode/utf8"
)

var base64URLReplacer = strings.NewReplacer("-", "+", "_", "/")

// DecodeBase64URL decodes Gmail's URL-safe base64 body data into UTF-8 text.
// Malformed input (bad alphabet, truncated padding, invalid UTF-8) yields ""
// so one broken part never blocks rendering the rest of the inbox.
func DecodeBase64URL(data string) string {
	data = strings.TrimSpace(data)
	if data == "" {
		return ""
	}
	data = base64URLReplacer.Replace(data)
	switch len(data) % 4 {
	case 1:
		return ""
	case 2:
		data += "=="
	case 3:
		data += "="
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	if !utf8.Valid(decoded) {
		return ""
	}
	return string(decoded)
}

var headerDecoder = &mime.WordDecoder{}

// decodeHeader resolves RFC 2047 encoded-words; undecodable values are kept
func decodeHeader(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "=?") {
		return s
	}
	if decoded, err := headerDecoder.DecodeHeader(s); err == nil {
		return decoded
	}
	return s
}
