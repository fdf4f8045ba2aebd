package session

import (
	"net/http"
	"strings"
)

// ParseCookieHeader splits a captured Cookie header ("a=1; b=2") into
// name/value pairs. Each pair splits on its first '='; empty parts and
// parts without '=' or without a name are skipped. Values are kept verbatim.
func ParseCookieHeader(header string) []*http.Cookie {
	var out []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: name, Value: strings.TrimSpace(value), Path: "/"})
	}
	return out
}

// FormatCookieHeader renders cookies back into Cookie header form.
func FormatCookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// CookieNames lists cookie names without values, for logs.
func CookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	return names
}
