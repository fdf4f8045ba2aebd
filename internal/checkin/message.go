package checkin

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxMessage caps raw text carried as evidence.
const maxMessage = 500

// ExtractMessage pulls the human-readable status out of a response body.
// JSON objects are searched through fields in order and the first non-empty
// value wins; a list contributes its string items joined. The second result
// reports whether a candidate field carried the text. Otherwise the trimmed
// raw text is returned for evidence and must not be classified.
func ExtractMessage(body string, fields []string) (string, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		for _, f := range fields {
			if msg := flatten(obj[f]); msg != "" {
				return capText(msg), true
			}
		}
	}
	return capText(body), false
}

// unstructuredReason names why a non-empty body carried no status message.
func unstructuredReason(body string) string {
	var obj map[string]any
	if json.Unmarshal([]byte(body), &obj) == nil {
		return "response carried no status message"
	}
	return "non-JSON response"
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func capText(s string) string {
	if len(s) <= maxMessage {
		return s
	}
	cut := maxMessage
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
