package checkin

import (
	"slices"
	"strings"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/keywords"
)

// ElementState is a snapshot of the affordance at one instant.
type ElementState struct {
	Present   bool
	Disabled  bool
	Classes   []string
	Label     string
	Text      string
	Completed bool
}

// Action is what the locator found: an element (maybe), the endpoint
// (always) and whether the header shows a logged-in account.
type Action struct {
	Element    browser.Element
	Affordance string
	Selector   string
	Hover      string
	Endpoint   string
	PreState   *ElementState
	LoggedIn   bool
	Account    string
}

// Observations accumulates every signal of one run. Missing signals stay at
// their zero value; the classifier treats them as absent.
type Observations struct {
	PreState  *ElementState
	PostState *ElementState

	// Messages are set only when a candidate response field carried them;
	// the bodies keep the raw text.
	NetworkHit     bool
	NetworkStatus  int
	NetworkBody    string
	NetworkMessage string

	HTTPAttempted bool
	HTTPStatus    int
	HTTPBody      string
	HTTPMessage   string

	Triggered      bool
	LocateErr      error
	InteractionErr error
}

// Empty reports whether no channel produced anything.
func (o *Observations) Empty() bool {
	return o.PreState == nil && o.PostState == nil && !o.NetworkHit &&
		!o.HTTPAttempted && o.LocateErr == nil && o.InteractionErr == nil
}

// completion turns raw element attributes into a state, deciding completion
// from classes, disabled-ness and label phrases.
type completion struct {
	classes []string
	phrases keywords.Set
}

func (c completion) state(a browser.Attrs) *ElementState {
	label := strings.TrimSpace(a.Label)
	if label == "" {
		label = strings.TrimSpace(a.Title)
	}
	s := &ElementState{
		Present:  true,
		Disabled: a.Disabled,
		Classes:  a.Classes,
		Label:    label,
		Text:     strings.TrimSpace(a.Text),
	}
	s.Completed = s.Disabled || c.hasClass(a.Classes)
	if !s.Completed {
		_, hitLabel := c.phrases.Match(s.Label)
		_, hitText := c.phrases.Match(s.Text)
		s.Completed = hitLabel || hitText
	}
	return s
}

func (c completion) hasClass(classes []string) bool {
	for _, want := range c.classes {
		if slices.Contains(classes, want) {
			return true
		}
	}
	return false
}

// transitioned reports a DOM change between pre and post that indicates the
// action took effect.
func transitioned(pre, post *ElementState) (string, bool) {
	if pre == nil || !pre.Present {
		return "", false
	}
	if post == nil {
		return "", false
	}
	if !post.Present {
		return "affordance disappeared", true
	}
	if post.Completed && !pre.Completed {
		switch {
		case post.Disabled && !pre.Disabled:
			return "affordance became disabled", true
		case post.Label != pre.Label || post.Text != pre.Text:
			return "affordance label changed to " + firstNonEmpty(post.Label, post.Text), true
		default:
			return "affordance marked completed", true
		}
	}
	if post.Disabled && !pre.Disabled {
		return "affordance became disabled", true
	}
	if post.Label != "" && post.Label != pre.Label {
		return "affordance label changed to " + post.Label, true
	}
	return "", false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
