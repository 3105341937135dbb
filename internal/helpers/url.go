package helpers

import (
	"net/url"
	"strings"
)

// SourceFromURL derives a publication name from the authority of raw, with a
// leading "www." removed. ok is false when raw cannot be parsed or carries no
// host (relative links, "#" placeholders, schemeless strings).
func SourceFromURL(raw string) (source string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := parsed.Host
	if host == "" {
		return "", false
	}
	return strings.TrimPrefix(host, "www."), true
}

// UnescapeURL turns raw spaces into "+" and then reverses percent-encoding,
// so "%20" decodes to a space. Values that fail to decode keep their escapes.
func UnescapeURL(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, " ", "+")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
