package checkin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/config"
	"dailycheckin/internal/logging"
	"dailycheckin/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionRejected means injected cookies did not produce a logged-in view.
var ErrSessionRejected = errors.New("cookie session rejected by the target")

// Report is the record of one run, handed to notification and metrics.
type Report struct {
	RunID     string
	Attempt   int
	Outcome   Outcome
	Reason    string
	Evidence  string
	Channel   Channel
	Mode      session.Mode
	Account   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Engine runs the full pipeline once per call: establish, locate, execute, classify.
type Engine struct {
	cfg         *config.Config
	opener      browser.Opener
	establisher *session.Establisher
	locator     *Locator
	executor    *Executor
	classifier  *Classifier
	log         *zap.Logger
	now         func() time.Time
}

// Option customizes an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	transport http.RoundTripper
	now       func() time.Time
}

// WithTransport routes the direct HTTP channel through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *engineOptions) { o.transport = rt }
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// NewEngine wires every component from cfg.
func NewEngine(cfg *config.Config, opener browser.Opener, logs *logging.Logger, opts ...Option) *Engine {
	if logs == nil {
		logs = logging.Nop()
	}
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	locator := NewLocator(cfg, logs.Get(logging.CategoryLocator))
	channel := NewHTTPChannel(cfg, o.transport, logs.Get(logging.CategoryExecutor))
	return &Engine{
		cfg:         cfg,
		opener:      opener,
		establisher: session.NewEstablisher(cfg, logs.Get(logging.CategorySession)),
		locator:     locator,
		executor:    NewExecutor(cfg, locator, channel, logs.Get(logging.CategoryExecutor)),
		classifier:  NewClassifier(cfg.Keywords, logs.Get(logging.CategoryClassifier)),
		log:         logs.Get(logging.CategoryEngine),
		now:         o.now,
	}
}

// Classifier exposes the engine's classifier.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Run performs one independent attempt in a fresh page. It always returns a
// report with exactly one outcome.
func (e *Engine) Run(ctx context.Context) *Report {
	rep := &Report{RunID: uuid.NewString(), Attempt: 1, StartedAt: e.now()}
	log := e.log.With(zap.String("run_id", rep.RunID))
	defer func() {
		rep.Duration = e.now().Sub(rep.StartedAt)
		log.Info("run finished",
			zap.Stringer("outcome", rep.Outcome),
			zap.String("channel", string(rep.Channel)),
			zap.String("reason", rep.Reason),
			zap.Duration("duration", rep.Duration))
	}()

	if e.cfg.Credentials.Empty() {
		rep.fail(OutcomeLoginFailed, ChannelSession, session.ErrNoCredentials)
		return rep
	}
	origin, err := e.cfg.Origin()
	if err != nil {
		rep.fail(OutcomeFailed, ChannelNone, err)
		return rep
	}

	page, err := e.opener.NewPage(ctx)
	if err != nil {
		rep.fail(OutcomeFailed, ChannelNone, fmt.Errorf("open browser page: %w", err))
		return rep
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("page close failed", zap.Error(err))
		}
	}()

	s, err := e.establisher.Establish(ctx, page, origin, e.cfg.Credentials)
	if err != nil {
		rep.fail(OutcomeLoginFailed, ChannelSession, err)
		return rep
	}
	rep.Mode = s.Mode

	action, locErr := e.locator.Locate(ctx, s)
	rep.Account = action.Account
	if errors.Is(locErr, ErrLocatorTimeout) && s.Mode == session.ModeCookie &&
		e.cfg.Selectors.Avatar != "" && !action.LoggedIn {
		rep.fail(OutcomeLoginFailed, ChannelSession, ErrSessionRejected)
		return rep
	}
	if err := s.Refresh(ctx, e.cfg.Selectors.CSRFCookies); err != nil {
		log.Warn("session refresh failed", zap.Error(err))
	}

	obs := e.executor.Execute(ctx, s, action)
	switch {
	case locErr == nil:
	case errors.Is(locErr, ErrLocatorTimeout):
		obs.LocateErr = locErr
	default:
		log.Warn("home view unavailable", zap.Error(locErr))
		obs.InteractionErr = errors.Join(fmt.Errorf("%w: %w", ErrInteraction, locErr), obs.InteractionErr)
	}

	res := e.classifier.Classify(obs)
	rep.Outcome = res.Outcome
	rep.Reason = res.Reason
	rep.Evidence = res.Evidence
	rep.Channel = res.Channel
	if res.Outcome == OutcomeFailed && obs.InteractionErr != nil {
		rep.Err = obs.InteractionErr
	}
	return rep
}

func (r *Report) fail(outcome Outcome, ch Channel, err error) {
	r.Outcome = outcome
	r.Channel = ch
	r.Reason = err.Error()
	r.Err = err
}
