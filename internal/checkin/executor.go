package checkin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/config"
	"dailycheckin/internal/session"

	"go.uber.org/zap"
)

// ErrInteraction wraps every failure while driving the page or the direct call.
var ErrInteraction = errors.New("interaction failed")

// hoverWait bounds the lookup of the dropdown toggle before hovering it.
const hoverWait = time.Second

// Executor performs the check-in through the pointer and, when the page
// offers no affordance, through a direct POST.
type Executor struct {
	locator *Locator
	http    *HTTPChannel
	timing  config.TimingConfig
	fields  []string
	log     *zap.Logger
}

// NewExecutor wires the executor. The locator is reused to re-read state.
func NewExecutor(cfg *config.Config, locator *Locator, channel *HTTPChannel, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		locator: locator,
		http:    channel,
		timing:  cfg.Timing,
		fields:  cfg.MessageFields,
		log:     log,
	}
}

// Execute acts on action at most once and returns everything it saw. It
// never fails: errors and panics end up in InteractionErr.
func (x *Executor) Execute(ctx context.Context, s *session.Session, action *Action) (obs *Observations) {
	obs = &Observations{PreState: action.PreState}
	if action.PreState != nil && action.PreState.Completed {
		x.log.Info("affordance already completed, nothing to press", zap.String("affordance", action.Affordance))
		return obs
	}

	defer func() {
		if r := recover(); r != nil {
			x.log.Error("interaction panicked", zap.Any("panic", r))
			obs.InteractionErr = errors.Join(obs.InteractionErr, fmt.Errorf("%w: panic: %v", ErrInteraction, r))
		}
	}()

	path := endpointPath(action.Endpoint)
	armCtx, disarm := context.WithCancel(ctx)
	defer disarm()
	responses, err := s.Page.Responses(armCtx, path)
	if err != nil {
		x.log.Warn("response listener unavailable", zap.Error(err))
	}

	if action.Element != nil {
		if err := x.press(ctx, s.Page, action); err != nil {
			x.log.Warn("pointer press failed", zap.Error(err))
			obs.InteractionErr = err
		} else {
			obs.Triggered = true
		}

		if r, ok := x.settle(ctx, responses, path); ok {
			obs.NetworkHit = true
			obs.NetworkStatus = r.Status
			obs.NetworkBody = r.Body
			if msg, ok := ExtractMessage(r.Body, x.fields); ok {
				obs.NetworkMessage = msg
			}
			x.log.Info("intercepted check-in response",
				zap.Int("status", r.Status),
				zap.String("message", obs.NetworkMessage))
		}
	}

	if obs.NetworkMessage == "" && action.Element == nil {
		x.fallback(ctx, s, action, obs)
	}

	if action.Selector != "" {
		obs.PostState = x.locator.State(ctx, s.Page, action.Selector, x.timing.GetPostStateTimeout())
	}
	return obs
}

// press hovers the dropdown toggle when there is one, then moves the pointer
// to the element centre and presses with a realistic dwell and hold.
func (x *Executor) press(ctx context.Context, page browser.Page, action *Action) error {
	if action.Hover != "" {
		if toggle, err := page.Element(ctx, action.Hover, hoverWait); err == nil {
			if hx, hy, err := toggle.Center(ctx); err == nil {
				if err := page.MoveMouse(ctx, hx, hy); err != nil {
					return fmt.Errorf("%w: hover: %w", ErrInteraction, err)
				}
				if err := sleep(ctx, x.timing.GetHoverDwell()); err != nil {
					return fmt.Errorf("%w: %w", ErrInteraction, err)
				}
			}
		}
	}

	el := action.Element
	if err := el.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("%w: scroll into view: %w", ErrInteraction, err)
	}
	cx, cy, err := el.Center(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInteraction, err)
	}
	if err := page.MoveMouse(ctx, cx, cy); err != nil {
		return fmt.Errorf("%w: move pointer: %w", ErrInteraction, err)
	}
	if err := sleep(ctx, x.timing.GetPressDwell()); err != nil {
		return fmt.Errorf("%w: %w", ErrInteraction, err)
	}
	if err := page.MouseDown(ctx); err != nil {
		return fmt.Errorf("%w: press: %w", ErrInteraction, err)
	}
	holdErr := sleep(ctx, x.timing.GetPressHold())
	// Release even when the hold was cut short so the pointer is not left down.
	if err := page.MouseUp(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%w: release: %w", ErrInteraction, err)
	}
	if holdErr != nil {
		return fmt.Errorf("%w: %w", ErrInteraction, holdErr)
	}
	x.log.Debug("pointer pressed", zap.Float64("x", cx), zap.Float64("y", cy))
	return nil
}

// settle waits for the first response to the endpoint or the settle bound,
// whichever comes first. A response already buffered when the bound fires
// still wins.
func (x *Executor) settle(ctx context.Context, responses <-chan browser.Response, path string) (browser.Response, bool) {
	timer := time.NewTimer(x.timing.GetActionSettle())
	defer timer.Stop()

	for {
		select {
		case r, ok := <-responses:
			if !ok {
				return browser.Response{}, false
			}
			if samePath(r.URL, path) {
				return r, true
			}
		case <-timer.C:
			return drain(responses, path)
		case <-ctx.Done():
			return drain(responses, path)
		}
	}
}

func drain(responses <-chan browser.Response, path string) (browser.Response, bool) {
	for {
		select {
		case r, ok := <-responses:
			if !ok {
				return browser.Response{}, false
			}
			if samePath(r.URL, path) {
				return r, true
			}
		default:
			return browser.Response{}, false
		}
	}
}

func (x *Executor) fallback(ctx context.Context, s *session.Session, action *Action, obs *Observations) {
	if x.http == nil {
		return
	}
	obs.HTTPAttempted = true
	res, err := x.http.Post(ctx, s, action.Endpoint)
	if res != nil {
		obs.HTTPStatus = res.Status
		obs.HTTPBody = res.Body
		if msg, ok := ExtractMessage(res.Body, x.fields); ok {
			obs.HTTPMessage = msg
		}
		x.log.Info("direct check-in answered",
			zap.Int("status", res.Status),
			zap.String("message", obs.HTTPMessage))
	}
	if err != nil {
		x.log.Warn("direct check-in failed", zap.Error(err))
		obs.InteractionErr = errors.Join(obs.InteractionErr, fmt.Errorf("%w: %w", ErrInteraction, err))
	}
}

func endpointPath(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return endpoint
	}
	return u.Path
}

// samePath reports whether raw addresses the endpoint path itself, so that
// assets sharing its prefix are ignored.
func samePath(raw, path string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(path, "/")
}
