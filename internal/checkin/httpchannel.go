package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dailycheckin/internal/config"
	"dailycheckin/internal/session"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

// maxBody caps how much of a response is read.
const maxBody = 64 << 10

var nonceRe = regexp.MustCompile(`nonce="([^"]+)"`)

// HTTPChannel posts the check-in directly, rebuilt from the session cookies.
type HTTPChannel struct {
	target    config.TargetConfig
	selectors config.SelectorConfig
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time
	log       *zap.Logger
}

// NewHTTPChannel creates the direct channel. A nil transport uses the default.
func NewHTTPChannel(cfg *config.Config, transport http.RoundTripper, log *zap.Logger) *HTTPChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPChannel{
		target:    cfg.Target,
		selectors: cfg.Selectors,
		timeout:   cfg.Timing.GetHTTPTimeout(),
		transport: transport,
		now:       time.Now,
		log:       log,
	}
}

// HTTPResult is the raw reply of the direct call.
type HTTPResult struct {
	Status int
	Body   string
}

// Post sends one POST to endpoint. Any response, whatever its status, is
// returned with its body; only transport failures are errors.
func (h *HTTPChannel) Post(ctx context.Context, s *session.Session, endpoint string) (*HTTPResult, error) {
	client, err := h.client(s)
	if err != nil {
		return nil, err
	}

	var page string
	if s.Page != nil {
		if p, err := s.Page.HTML(ctx); err == nil {
			page = p
		} else {
			h.log.Debug("page source unavailable", zap.Error(err))
		}
	}

	token := s.CSRFToken
	if token == "" {
		token = metaContent(page, h.selectors.CSRFMeta)
	}
	if token == "" && h.target.CSRFPath != "" {
		token, err = h.fetchToken(ctx, client, s)
		if err != nil {
			h.log.Warn("anti-forgery token unavailable", zap.Error(err))
		}
	}
	nonce := ""
	if m := nonceRe.FindStringSubmatch(page); m != nil {
		nonce = m[1]
	}

	form := url.Values{}
	form.Set("timestamp", strconv.FormatInt(h.now().UnixMilli(), 10))
	if nonce != "" {
		form.Set("nonce", nonce)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build check-in request: %w", err)
	}
	h.headers(req, s)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Referer", s.Origin.String()+"/")
	req.Header.Set("Discourse-Logged-In", "true")
	req.Header.Set("X-Discourse-Checkin", "true")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	if nonce != "" {
		req.Header.Set("X-Checkin-Nonce", nonce)
	}

	h.log.Info("posting check-in directly",
		zap.String("endpoint", endpoint),
		zap.Bool("csrf", token != ""),
		zap.Bool("nonce", nonce != ""))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post check-in: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &HTTPResult{Status: resp.StatusCode}, fmt.Errorf("read check-in response: %w", err)
	}
	return &HTTPResult{Status: resp.StatusCode, Body: string(body)}, nil
}

func (h *HTTPChannel) client(s *session.Session) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	jar.SetCookies(s.Origin, s.Cookies)
	return &http.Client{Jar: jar, Timeout: h.timeout, Transport: h.transport}, nil
}

func (h *HTTPChannel) headers(req *http.Request, s *session.Session) {
	req.Header.Set("User-Agent", h.target.UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Origin", s.Origin.String())
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Discourse-Present", "true")
}

// fetchToken asks the target for a fresh anti-forgery token.
func (h *HTTPChannel) fetchToken(ctx context.Context, client *http.Client, s *session.Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(h.target.CSRFPath), nil)
	if err != nil {
		return "", err
	}
	h.headers(req, s)
	req.Header.Set("Referer", s.Origin.String()+"/")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get csrf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get csrf: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		CSRF string `json:"csrf"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode csrf: %w", err)
	}
	if payload.CSRF == "" {
		return "", fmt.Errorf("csrf response carried no token")
	}
	return payload.CSRF, nil
}

// metaContent returns the content of <meta name="name">.
func metaContent(page, name string) string {
	if page == "" || name == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" && attr(n, "name") == name {
			found = attr(n, "content")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return strconv.Itoa(code)
}
