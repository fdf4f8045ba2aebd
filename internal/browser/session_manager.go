package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// maxBodyBytes caps captured response bodies.
const maxBodyBytes = 64 * 1024

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Bin                 string   `json:"bin"`
	Flags               []string `json:"flags"`
	Headless            bool     `json:"headless"`
	NoSandbox           bool     `json:"no_sandbox"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	UserAgent           string   `json:"user_agent"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		NoSandbox:           true,
		ViewportWidth:       1280,
		ViewportHeight:      800,
		NavigationTimeoutMs: 60000,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1280
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 800
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 60 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Manager owns the Chrome process and opens isolated pages on it.
type Manager struct {
	cfg        Config
	log        *zap.Logger
	mu         sync.Mutex
	browser    *rod.Browser
	launch     *launcher.Launcher
	controlURL string
}

// NewManager creates a manager. Chrome is started lazily on the first page.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, log: log}
}

// Start connects to an existing Chrome or launches a new one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.log.Warn("stale browser connection, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(m.cfg.Headless).NoSandbox(m.cfg.NoSandbox)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		for _, rawFlag := range m.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		url, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		m.launch = l
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = b
	m.controlURL = controlURL
	m.log.Debug("browser connected", zap.String("control_url", controlURL), zap.Bool("headless", m.cfg.Headless))
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controlURL
}

// NewPage opens a blank page in a fresh incognito context.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, errors.New("browser not connected")
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		m.log.Warn("failed to set viewport", zap.Error(err))
	}

	if m.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.cfg.UserAgent}); err != nil {
			m.log.Warn("failed to set user agent", zap.Error(err))
		}
	}

	return &rodPage{page: page, incognito: incognito, cfg: m.cfg, log: m.log}, nil
}

// Shutdown closes the browser and kills a launched process.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launch != nil {
		m.launch.Kill()
		m.launch.Cleanup()
		m.launch = nil
	}
	m.controlURL = ""
	return err
}

type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
	cfg       Config
	log       *zap.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Timeout(p.cfg.NavigationTimeout()).Navigate(url)
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Element(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
		}
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Has(ctx context.Context, selector string) bool {
	ok, _, err := p.page.Context(ctx).Has(selector)
	return err == nil && ok
}

func (p *rodPage) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	raw, err := p.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

func (p *rodPage) SetCookies(ctx context.Context, origin string, cookies []*http.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      origin,
			Path:     path,
			Secure:   strings.HasPrefix(origin, "https://"),
			HTTPOnly: c.HttpOnly,
		})
	}
	if len(params) == 0 {
		return nil
	}
	return p.page.Context(ctx).SetCookies(params)
}

func (p *rodPage) MoveMouse(_ context.Context, x, y float64) error {
	return p.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (p *rodPage) MouseDown(_ context.Context) error {
	return p.page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) MouseUp(_ context.Context) error {
	return p.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

// Responses wires NetworkResponseReceived/LoadingFinished into a channel.
// Only the URL bookkeeping happens on the event goroutine; body retrieval
// runs on its own goroutine so the listener never stalls the CDP stream.
func (p *rodPage) Responses(ctx context.Context, urlSubstr string) (<-chan Response, error) {
	if err := (proto.NetworkEnable{}).Call(p.page); err != nil {
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	out := make(chan Response, 4)
	var mu sync.Mutex
	pending := make(map[proto.NetworkRequestID]Response)

	deliver := func(r Response) {
		select {
		case out <- r:
		case <-ctx.Done():
		}
	}

	wait := p.page.Context(ctx).EachEvent(
		func(ev *proto.NetworkResponseReceived) {
			if ev.Response == nil || !strings.Contains(ev.Response.URL, urlSubstr) {
				return
			}
			mu.Lock()
			pending[ev.RequestID] = Response{URL: ev.Response.URL, Status: ev.Response.Status}
			mu.Unlock()
		},
		func(ev *proto.NetworkLoadingFinished) {
			mu.Lock()
			r, ok := pending[ev.RequestID]
			delete(pending, ev.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			go func(id proto.NetworkRequestID) {
				body, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p.page)
				if err != nil {
					p.log.Debug("response body unavailable", zap.String("url", r.URL), zap.Error(err))
				} else if !body.Base64Encoded {
					r.Body = truncate(body.Body, maxBodyBytes)
				}
				deliver(r)
			}(ev.RequestID)
		},
		func(ev *proto.NetworkLoadingFailed) {
			mu.Lock()
			r, ok := pending[ev.RequestID]
			delete(pending, ev.RequestID)
			mu.Unlock()
			if ok {
				go deliver(r)
			}
		},
	)
	go wait()

	return out, nil
}

func (p *rodPage) Close() error {
	err := p.page.Close()
	if p.incognito != nil {
		if cerr := p.incognito.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type rodElement struct {
	el *rod.Element
}

// attrsJS reads state from the element and from its nearest interactive
// host, since icon affordances keep their state on the wrapping button/li.
const attrsJS = `function() {
	const host = this.closest('button, a, li') || this;
	const cls = (el) => (el.getAttribute('class') || '').split(/\s+/).filter(Boolean);
	const classes = Array.from(new Set(cls(this).concat(host === this ? [] : cls(host))));
	return {
		disabled: this.hasAttribute('disabled') || host.hasAttribute('disabled') || host.getAttribute('aria-disabled') === 'true',
		classes: classes,
		title: this.getAttribute('title') || host.getAttribute('title') || '',
		label: this.getAttribute('aria-label') || host.getAttribute('aria-label') || '',
		text: ((host.innerText || host.textContent || '') + '').trim().slice(0, 256),
		alt: this.getAttribute('alt') || ''
	};
}`

func (e *rodElement) Attrs(ctx context.Context) (Attrs, error) {
	res, err := e.el.Context(ctx).Eval(attrsJS)
	if err != nil {
		return Attrs{}, fmt.Errorf("read element state: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return Attrs{}, fmt.Errorf("marshal element state: %w", err)
	}
	var a Attrs
	if err := json.Unmarshal(raw, &a); err != nil {
		return Attrs{}, fmt.Errorf("decode element state: %w", err)
	}
	return a, nil
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) Center(ctx context.Context) (float64, float64, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return 0, 0, fmt.Errorf("element shape: %w", err)
	}
	box := shape.Box()
	if box == nil || box.Width == 0 || box.Height == 0 {
		return 0, 0, errors.New("element has no visible box")
	}
	return box.X + box.Width/2, box.Y + box.Height/2, nil
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
