// Package browsertest provides an in-memory browser.Page for unit tests.
package browsertest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dailycheckin/internal/browser"
)

// Element is a scripted element. Mutate it through the owning Page's
// helpers so reads stay race-free.
type Element struct {
	Selector string
	State    browser.Attrs
	X, Y     float64
	Typed    string
	Clicks   int

	page *Page
}

// Attrs implements browser.Element.
func (e *Element) Attrs(context.Context) (browser.Attrs, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.AttrsErr; err != nil {
		return browser.Attrs{}, err
	}
	return e.State, nil
}

// ScrollIntoView implements browser.Element.
func (e *Element) ScrollIntoView(context.Context) error {
	e.page.record("scroll " + e.Selector)
	return nil
}

// Center implements browser.Element.
func (e *Element) Center(context.Context) (float64, float64, error) {
	return e.X, e.Y, nil
}

// Input implements browser.Element.
func (e *Element) Input(_ context.Context, text string) error {
	e.page.mu.Lock()
	e.Typed += text
	e.page.mu.Unlock()
	e.page.record("input " + e.Selector)
	return nil
}

// Click implements browser.Element.
func (e *Element) Click(context.Context) error {
	e.page.mu.Lock()
	e.Clicks++
	hook := e.page.OnClick[e.Selector]
	e.page.mu.Unlock()
	e.page.record("click " + e.Selector)
	if hook != nil {
		hook(e.page)
	}
	return nil
}

// Page is a scripted browser.Page. Zero value is not usable; call NewPage.
type Page struct {
	mu sync.Mutex

	CurrentURL string
	Body       string
	elements   map[string]*Element
	cookies    []*http.Cookie

	// OnClick runs after a Click on the given selector.
	OnClick map[string]func(*Page)
	// OnPress runs after MouseUp, emulating what the target does on a real press.
	OnPress func(*Page)
	// OnNavigate runs after Navigate.
	OnNavigate func(*Page, string)
	// AttrsErr makes every Attrs call fail.
	AttrsErr error
	// MoveErr makes every MoveMouse call fail.
	MoveErr error
	// Stalled makes element lookups miss until their wait or ctx ends, and
	// then report ErrNotFound either way.
	Stalled bool

	Calls   []string
	Presses int

	subs []chan browser.Response
	subN []string
}

// NewPage returns an empty page at about:blank.
func NewPage() *Page {
	return &Page{
		CurrentURL: "about:blank",
		elements:   make(map[string]*Element),
		OnClick:    make(map[string]func(*Page)),
	}
}

func (p *Page) record(call string) {
	p.mu.Lock()
	p.Calls = append(p.Calls, call)
	p.mu.Unlock()
}

// Put adds or replaces the element answering selector.
func (p *Page) Put(selector string, state browser.Attrs) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{Selector: selector, State: state, X: 100, Y: 40, page: p}
	p.elements[selector] = el
	return el
}

// SetState replaces the state of an existing element.
func (p *Page) SetState(selector string, state browser.Attrs) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[selector]; ok {
		el.State = state
	}
}

// Remove deletes the element answering selector.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// Get returns the element answering selector, or nil.
func (p *Page) Get(selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements[selector]
}

// Emit pushes a response to every listener whose filter matches.
func (p *Page) Emit(r browser.Response) {
	p.mu.Lock()
	subs := append([]chan browser.Response(nil), p.subs...)
	filters := append([]string(nil), p.subN...)
	p.mu.Unlock()
	for i, ch := range subs {
		if strings.Contains(r.URL, filters[i]) {
			select {
			case ch <- r:
			default:
			}
		}
	}
}

// CallCount returns how many recorded calls start with prefix.
func (p *Page) CallCount(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Navigate implements browser.Page.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	p.CurrentURL = url
	hook := p.OnNavigate
	p.mu.Unlock()
	p.record("navigate " + url)
	if hook != nil {
		hook(p, url)
	}
	return nil
}

// URL implements browser.Page.
func (p *Page) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

// HTML implements browser.Page.
func (p *Page) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Body, nil
}

// Element implements browser.Page, polling until timeout like the real driver.
func (p *Page) Element(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		el, ok := p.elements[selector]
		stalled := p.Stalled
		p.mu.Unlock()
		if ok && !stalled {
			return el, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
		}
		select {
		case <-ctx.Done():
			if stalled {
				return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
			}
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Has implements browser.Page.
func (p *Page) Has(_ context.Context, selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.elements[selector]
	return ok
}

// Cookies implements browser.Page.
func (p *Page) Cookies(context.Context) ([]*http.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*http.Cookie(nil), p.cookies...), nil
}

// SetCookies implements browser.Page.
func (p *Page) SetCookies(_ context.Context, _ string, cookies []*http.Cookie) error {
	p.mu.Lock()
	p.cookies = append(p.cookies, cookies...)
	p.mu.Unlock()
	p.record("set-cookies")
	return nil
}

// MoveMouse implements browser.Page.
func (p *Page) MoveMouse(_ context.Context, x, y float64) error {
	if p.MoveErr != nil {
		return p.MoveErr
	}
	p.record(fmt.Sprintf("move %.0f,%.0f", x, y))
	return nil
}

// MouseDown implements browser.Page.
func (p *Page) MouseDown(context.Context) error {
	p.record("down")
	return nil
}

// MouseUp implements browser.Page.
func (p *Page) MouseUp(context.Context) error {
	p.mu.Lock()
	p.Presses++
	hook := p.OnPress
	p.mu.Unlock()
	p.record("up")
	if hook != nil {
		hook(p)
	}
	return nil
}

// Responses implements browser.Page.
func (p *Page) Responses(_ context.Context, urlSubstr string) (<-chan browser.Response, error) {
	ch := make(chan browser.Response, 4)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.subN = append(p.subN, urlSubstr)
	p.mu.Unlock()
	return ch, nil
}

// Close implements browser.Page.
func (p *Page) Close() error {
	p.record("close")
	return nil
}

// Opener hands out a preset sequence of pages.
type Opener struct {
	mu    sync.Mutex
	Pages []*Page
	Err   error
	next  int
}

// NewPage implements browser.Opener. The last page is reused once the list runs out.
func (o *Opener) NewPage(context.Context) (browser.Page, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	if len(o.Pages) == 0 {
		return nil, fmt.Errorf("browsertest: no pages")
	}
	i := o.next
	if i >= len(o.Pages) {
		i = len(o.Pages) - 1
	}
	o.next++
	return o.Pages[i], nil
}

var (
	_ browser.Page    = (*Page)(nil)
	_ browser.Element = (*Element)(nil)
	_ browser.Opener  = (*Opener)(nil)
)
