package session

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseCookieHeader_TwoPairs(t *testing.T) {
	cookies := ParseCookieHeader("a=1; b=2")
	require.Len(t, cookies, 2)
	assert.Equal(t, "a", cookies[0].Name)
	assert.Equal(t, "1", cookies[0].Value)
	assert.Equal(t, "b", cookies[1].Name)
	assert.Equal(t, "2", cookies[1].Value)
}

func TestParseCookieHeader_EdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"trailing separator", "a=1;", map[string]string{"a": "1"}},
		{"extra whitespace", "  a=1 ;   b=2  ", map[string]string{"a": "1", "b": "2"}},
		{"first equals splits", "token=abc=def==", map[string]string{"token": "abc=def=="}},
		{"empty value kept", "a=; b=2", map[string]string{"a": "", "b": "2"}},
		{"no equals skipped", "flag; a=1", map[string]string{"a": "1"}},
		{"no name skipped", "=orphan; a=1", map[string]string{"a": "1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := map[string]string{}
			for _, c := range ParseCookieHeader(tc.header) {
				got[c.Name] = c.Value
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatCookieHeader(t *testing.T) {
	got := FormatCookieHeader([]*http.Cookie{{Name: "_t", Value: "x"}, {Name: "_forum_session", Value: "y"}})
	assert.Equal(t, "_t=x; _forum_session=y", got)
	assert.Equal(t, []string{"a", "b"}, CookieNames(ParseCookieHeader("a=1; b=2")))
}

// Parsing then re-serialising is lossless whenever values carry no ';' or '='.
func TestCookieHeader_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		pairs := make([]string, 0, n)
		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[A-Za-z0-9_.\-]{1,16}`).Draw(rt, fmt.Sprintf("name%d", i))
			value := rapid.StringMatching(`[!-:<>-~\p{Han}]{0,32}`).Draw(rt, fmt.Sprintf("value%d", i))
			pairs = append(pairs, name+"="+value)
		}
		header := strings.Join(pairs, "; ")

		cookies := ParseCookieHeader(header)
		if len(cookies) != n {
			rt.Fatalf("parsed %d cookies from %q, want %d", len(cookies), header, n)
		}
		if got := FormatCookieHeader(cookies); got != header {
			rt.Fatalf("round trip changed header:\n got %q\nwant %q", got, header)
		}
	})
}
