package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/config"
	"dailycheckin/internal/keywords"

	"go.uber.org/zap"
)

// loginPoll is how often the post-submit conditions are re-checked.
const loginPoll = 250 * time.Millisecond

// Establisher turns Credentials into a Session on a fresh page.
type Establisher struct {
	target    config.TargetConfig
	selectors config.SelectorConfig
	timeout   time.Duration
	blocked   keywords.Set
	log       *zap.Logger
}

// NewEstablisher creates an Establisher from the run configuration.
func NewEstablisher(cfg *config.Config, log *zap.Logger) *Establisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Establisher{
		target:    cfg.Target,
		selectors: cfg.Selectors,
		timeout:   cfg.Timing.GetLoginTimeout(),
		blocked:   keywords.NewSet(cfg.Keywords.Blocked),
		log:       log,
	}
}

// Establish injects the captured cookie header when present, otherwise
// performs one interactive login. A cookie session is only provisionally
// valid until the locator has looked at the home view.
func (e *Establisher) Establish(ctx context.Context, page browser.Page, origin *url.URL, creds config.Credentials) (*Session, error) {
	if creds.HasCookie() {
		cookies := ParseCookieHeader(creds.Cookie)
		if len(cookies) > 0 {
			return e.inject(ctx, page, origin, cookies)
		}
		e.log.Warn("cookie header has no name=value pairs")
	}
	if creds.HasLogin() {
		return e.login(ctx, page, origin, creds.Username, creds.Password)
	}
	return nil, ErrNoCredentials
}

func (e *Establisher) inject(ctx context.Context, page browser.Page, origin *url.URL, cookies []*http.Cookie) (*Session, error) {
	if err := page.SetCookies(ctx, origin.String(), cookies); err != nil {
		return nil, fmt.Errorf("%w: inject cookies: %w", ErrLoginFailed, err)
	}
	s := &Session{Origin: origin, Mode: ModeCookie, Cookies: cookies, Page: page}
	if tok, ok := s.cookieToken(e.selectors.CSRFCookies); ok {
		s.CSRFToken = tok
	}
	e.log.Info("session cookies injected",
		zap.Strings("names", CookieNames(cookies)),
		zap.Bool("csrf_cookie", s.CSRFToken != ""))
	return s, nil
}

func (e *Establisher) login(ctx context.Context, page browser.Page, origin *url.URL, username, password string) (*Session, error) {
	loginURL := origin.ResolveReference(&url.URL{Path: e.target.LoginPath}).String()
	e.log.Info("logging in", zap.String("url", loginURL))

	if err := page.Navigate(ctx, loginURL); err != nil {
		return nil, fmt.Errorf("%w: open login page: %w", ErrLoginFailed, err)
	}

	user, err := page.Element(ctx, e.selectors.LoginUser, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: username field: %w", ErrLoginFailed, err)
	}
	pass, err := page.Element(ctx, e.selectors.LoginPassword, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: password field: %w", ErrLoginFailed, err)
	}
	if err := user.Input(ctx, username); err != nil {
		return nil, fmt.Errorf("%w: fill username: %w", ErrLoginFailed, err)
	}
	if err := pass.Input(ctx, password); err != nil {
		return nil, fmt.Errorf("%w: fill password: %w", ErrLoginFailed, err)
	}
	submit, err := page.Element(ctx, e.selectors.LoginSubmit, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: submit control: %w", ErrLoginFailed, err)
	}
	if err := submit.Click(ctx); err != nil {
		return nil, fmt.Errorf("%w: submit: %w", ErrLoginFailed, err)
	}

	if err := e.awaitLoggedIn(ctx, page, loginURL); err != nil {
		return nil, err
	}

	s := &Session{Origin: origin, Mode: ModeLogin, Page: page}
	if err := s.Refresh(ctx, e.selectors.CSRFCookies); err != nil {
		e.log.Warn("could not read cookies after login", zap.Error(err))
	}
	e.log.Info("login succeeded", zap.Strings("cookies", CookieNames(s.Cookies)))
	return s, nil
}

// awaitLoggedIn waits for whichever fires first: the URL leaving the login
// page or a check-in affordance rendering. A login alert carrying a block
// marker ends the wait early.
func (e *Establisher) awaitLoggedIn(ctx context.Context, page browser.Page, loginURL string) error {
	deadline := time.NewTimer(e.timeout)
	defer deadline.Stop()
	tick := time.NewTicker(loginPoll)
	defer tick.Stop()

	for {
		if u, err := page.URL(ctx); err == nil && leftLogin(u, loginURL) {
			e.log.Debug("navigated away from login", zap.String("url", u))
			return nil
		}
		for _, a := range e.selectors.Affordances {
			if page.Has(ctx, a.Target) {
				e.log.Debug("affordance visible after login", zap.String("affordance", a.Name))
				return nil
			}
		}
		alert := e.alertText(ctx, page)
		if word, ok := e.blocked.Match(alert); ok {
			return fmt.Errorf("%w: %w (%s): %s", ErrLoginFailed, ErrLoginBlocked, word, alert)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrLoginFailed, ctx.Err())
		case <-deadline.C:
			if alert != "" {
				return fmt.Errorf("%w: %s", ErrLoginFailed, alert)
			}
			return fmt.Errorf("%w: still on login page after %s", ErrLoginFailed, e.timeout)
		case <-tick.C:
		}
	}
}

func (e *Establisher) alertText(ctx context.Context, page browser.Page) string {
	if e.selectors.LoginAlert == "" || !page.Has(ctx, e.selectors.LoginAlert) {
		return ""
	}
	el, err := page.Element(ctx, e.selectors.LoginAlert, loginPoll)
	if err != nil {
		return ""
	}
	attrs, err := el.Attrs(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(attrs.Text)
}

func leftLogin(current, loginURL string) bool {
	if current == "" || current == "about:blank" {
		return false
	}
	return !strings.HasPrefix(current, loginURL)
}
