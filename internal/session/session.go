// Package session establishes the authenticated browsing context for a run,
// either from a captured Cookie header or through the interactive login form.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"dailycheckin/internal/browser"
)

var (
	// ErrNoCredentials means neither a cookie header nor a username/password pair is configured.
	ErrNoCredentials = errors.New("no usable credentials configured")
	// ErrLoginFailed means a login was attempted but no session materialised.
	ErrLoginFailed = errors.New("login failed")
	// ErrLoginBlocked means the target demanded a second factor or captcha.
	ErrLoginBlocked = errors.New("login blocked by the target")
)

// Mode records how a Session came to exist.
type Mode string

const (
	ModeCookie Mode = "cookie"
	ModeLogin  Mode = "login"
)

// Session is the authenticated context of one run. It is owned by the run
// and discarded with its page.
type Session struct {
	Origin    *url.URL
	Mode      Mode
	Cookies   []*http.Cookie
	CSRFToken string
	Page      browser.Page
}

// Refresh re-reads cookies from the live page, since login and page loads
// rotate them, and re-derives the anti-forgery token from csrfCookies.
func (s *Session) Refresh(ctx context.Context, csrfCookies []string) error {
	if s.Page == nil {
		return errors.New("session has no page")
	}
	cookies, err := s.Page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("refresh cookies: %w", err)
	}
	if len(cookies) > 0 {
		s.Cookies = cookies
	}
	if tok, ok := s.cookieToken(csrfCookies); ok {
		s.CSRFToken = tok
	}
	return nil
}

// Cookie returns the value of the named cookie.
func (s *Session) Cookie(name string) (string, bool) {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// URL resolves path against the session origin.
func (s *Session) URL(path string) string {
	return s.Origin.ResolveReference(&url.URL{Path: path}).String()
}

func (s *Session) cookieToken(names []string) (string, bool) {
	for _, n := range names {
		if v, ok := s.Cookie(n); ok && v != "" {
			if dec, err := url.QueryUnescape(v); err == nil {
				v = dec
			}
			return v, true
		}
	}
	return "", false
}
