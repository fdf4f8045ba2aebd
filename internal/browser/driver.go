// Package browser drives a real Chrome instance through go-rod for a single
// check-in run: one incognito context, one page, pointer input and a
// network response stream.
package browser

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned when a selector does not resolve within its wait.
var ErrNotFound = errors.New("element not found")

// Attrs is the subset of element state the check-in logic compares.
type Attrs struct {
	Disabled bool     `json:"disabled"`
	Classes  []string `json:"classes"`
	Title    string   `json:"title"`
	Label    string   `json:"label"`
	Text     string   `json:"text"`
	Alt      string   `json:"alt"`
}

// Response is a network response captured by the page listener.
type Response struct {
	URL    string
	Status int
	Body   string
}

// Element is a resolved DOM node.
type Element interface {
	Attrs(ctx context.Context) (Attrs, error)
	ScrollIntoView(ctx context.Context) error
	// Center returns the viewport coordinates of the element's centre.
	Center(ctx context.Context) (x, y float64, err error)
	Input(ctx context.Context, text string) error
	Click(ctx context.Context) error
}

// Page is one tab inside an isolated browsing context.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	// Element waits up to timeout for selector and returns ErrNotFound when
	// it never resolves.
	Element(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Has reports whether selector currently resolves, without waiting.
	Has(ctx context.Context, selector string) bool

	Cookies(ctx context.Context) ([]*http.Cookie, error)
	SetCookies(ctx context.Context, origin string, cookies []*http.Cookie) error

	MoveMouse(ctx context.Context, x, y float64) error
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error

	// Responses streams every response whose URL contains urlSubstr until
	// ctx is done. Bodies are fetched off the event goroutine.
	Responses(ctx context.Context, urlSubstr string) (<-chan Response, error)

	Close() error
}

// Opener hands out fresh pages, one per run.
type Opener interface {
	NewPage(ctx context.Context) (Page, error)
}
