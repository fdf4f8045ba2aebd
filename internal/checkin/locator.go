package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/config"
	"dailycheckin/internal/keywords"
	"dailycheckin/internal/session"

	"go.uber.org/zap"
)

// ErrLocatorTimeout means the home view loaded but no affordance pattern
// resolved within its wait. It is evidence, not a verdict.
var ErrLocatorTimeout = errors.New("check-in affordance not found")

// accountWait bounds the avatar lookup; the header is already rendered by then.
const accountWait = 500 * time.Millisecond

// Locator finds the check-in affordance on the home view.
type Locator struct {
	target     config.TargetConfig
	selectors  config.SelectorConfig
	settle     time.Duration
	completion completion
	log        *zap.Logger
}

// NewLocator creates a Locator from the run configuration.
func NewLocator(cfg *config.Config, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{
		target:    cfg.Target,
		selectors: cfg.Selectors,
		settle:    cfg.Timing.GetPageSettle(),
		completion: completion{
			classes: cfg.Selectors.CompletedClasses,
			phrases: keywords.NewSet(cfg.Selectors.CompletedPhrases),
		},
		log: log,
	}
}

// Locate loads the home view and returns what it found. The returned
// Action is never nil and its Endpoint is always set. A navigation error is
// returned as is; an absent affordance returns ErrLocatorTimeout.
func (l *Locator) Locate(ctx context.Context, s *session.Session) (*Action, error) {
	action := &Action{Endpoint: s.URL(l.target.EndpointPath)}
	page := s.Page

	home := s.Origin.String() + "/"
	if err := page.Navigate(ctx, home); err != nil {
		return action, fmt.Errorf("open home view: %w", err)
	}
	if err := sleep(ctx, l.settle); err != nil {
		return action, err
	}

	action.LoggedIn = l.selectors.Avatar != "" && page.Has(ctx, l.selectors.Avatar)
	if action.LoggedIn {
		action.Account = l.account(ctx, page)
	}

	for _, a := range l.selectors.Affordances {
		el, err := page.Element(ctx, a.Target, a.GetWait())
		if err != nil {
			if ctx.Err() != nil {
				return action, ctx.Err()
			}
			l.log.Debug("affordance pattern did not resolve", zap.String("affordance", a.Name), zap.Error(err))
			continue
		}
		action.Element = el
		action.Affordance = a.Name
		action.Selector = a.Target
		action.Hover = a.Hover

		attrs, err := el.Attrs(ctx)
		if err != nil {
			l.log.Warn("could not read affordance state", zap.String("affordance", a.Name), zap.Error(err))
		} else {
			action.PreState = l.completion.state(attrs)
		}
		l.log.Info("affordance located",
			zap.String("affordance", a.Name),
			zap.Bool("logged_in", action.LoggedIn),
			zap.Bool("completed", action.PreState != nil && action.PreState.Completed))
		return action, nil
	}

	l.log.Info("no affordance on home view",
		zap.Bool("logged_in", action.LoggedIn),
		zap.String("endpoint", action.Endpoint))
	return action, ErrLocatorTimeout
}

// State re-reads the located element through its selector. A selector that
// no longer resolves yields a not-present state; a read error yields nil.
func (l *Locator) State(ctx context.Context, page browser.Page, selector string, wait time.Duration) *ElementState {
	el, err := page.Element(ctx, selector, wait)
	if ctx.Err() != nil {
		// A lookup cut short by the run deadline says nothing about the page.
		return nil
	}
	if errors.Is(err, browser.ErrNotFound) {
		return &ElementState{}
	}
	if err != nil {
		return nil
	}
	attrs, err := el.Attrs(ctx)
	if err != nil {
		return nil
	}
	return l.completion.state(attrs)
}

func (l *Locator) account(ctx context.Context, page browser.Page) string {
	el, err := page.Element(ctx, l.selectors.Avatar, accountWait)
	if err != nil {
		return ""
	}
	attrs, err := el.Attrs(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(firstNonEmpty(attrs.Alt, attrs.Title))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
