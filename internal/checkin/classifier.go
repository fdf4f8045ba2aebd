package checkin

import (
	"strings"

	"dailycheckin/internal/config"
	"dailycheckin/internal/keywords"

	"go.uber.org/zap"
)

// Channel names the observation that decided an outcome.
type Channel string

const (
	ChannelPreState Channel = "pre-state"
	ChannelNetwork  Channel = "network"
	ChannelHTTP     Channel = "http"
	ChannelDOM      Channel = "dom"
	ChannelNone     Channel = "none"
	ChannelSession  Channel = "session"
)

// Result is a classified run.
type Result struct {
	Outcome  Outcome
	Reason   string
	Evidence string
	Channel  Channel
}

// Classifier maps an Observations set to exactly one Outcome. It is pure:
// the same observations always give the same result.
type Classifier struct {
	success keywords.Set
	already keywords.Set
	log     *zap.Logger
}

// NewClassifier builds a classifier over the configured vocabularies.
func NewClassifier(kw config.KeywordConfig, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{
		success: keywords.NewSet(kw.Success),
		already: keywords.NewSet(kw.Already),
		log:     log,
	}
}

// ClassifyMessage judges a single status message. Success markers are
// checked before already-done markers.
func (c *Classifier) ClassifyMessage(msg string) (Outcome, string) {
	if word, ok := c.success.Match(msg); ok {
		return OutcomeSuccess, word
	}
	if word, ok := c.already.Match(msg); ok {
		return OutcomeAlreadyDone, word
	}
	return OutcomeFailed, ""
}

// Classify applies the precedence: pre-state, response message (network
// before HTTP), DOM transition, then untriggered or failed.
func (c *Classifier) Classify(obs *Observations) Result {
	r := c.classify(obs)
	c.log.Debug("classified",
		zap.Stringer("outcome", r.Outcome),
		zap.String("channel", string(r.Channel)),
		zap.String("reason", r.Reason))
	return r
}

func (c *Classifier) classify(obs *Observations) Result {
	if obs == nil {
		return Result{Outcome: OutcomeUntriggered, Reason: "no observations", Channel: ChannelNone}
	}

	if obs.PreState != nil && obs.PreState.Completed {
		return Result{
			Outcome:  OutcomeAlreadyDone,
			Reason:   "affordance already marked completed",
			Evidence: firstNonEmpty(obs.PreState.Label, obs.PreState.Text),
			Channel:  ChannelPreState,
		}
	}

	if msg, ch := responseMessage(obs); msg != "" {
		outcome, word := c.ClassifyMessage(msg)
		r := Result{Outcome: outcome, Evidence: msg, Channel: ch}
		if outcome == OutcomeFailed {
			r.Reason = "unrecognized response"
		} else {
			r.Reason = "response matched " + word
		}
		return r
	}
	if body, ch := responseBody(obs); body != "" {
		return Result{
			Outcome:  OutcomeFailed,
			Reason:   unstructuredReason(body),
			Evidence: capText(body),
			Channel:  ch,
		}
	}

	if reason, ok := transitioned(obs.PreState, obs.PostState); ok {
		return Result{Outcome: OutcomeSuccess, Reason: reason, Channel: ChannelDOM}
	}

	if !obs.NetworkHit && !obs.HTTPAttempted && obs.InteractionErr == nil {
		reason := "no response and no state change"
		if obs.LocateErr != nil {
			reason = obs.LocateErr.Error()
		}
		return Result{Outcome: OutcomeUntriggered, Reason: reason, Channel: ChannelNone}
	}

	r := Result{Outcome: OutcomeFailed, Reason: "no recognizable signal", Channel: ChannelNone}
	switch {
	case obs.InteractionErr != nil:
		r.Reason = obs.InteractionErr.Error()
	case obs.HTTPAttempted && obs.HTTPStatus != 0:
		r.Reason = "empty response"
		r.Channel = ChannelHTTP
		r.Evidence = "HTTP " + statusText(obs.HTTPStatus)
	case obs.NetworkHit:
		r.Reason = "empty response"
		r.Channel = ChannelNetwork
		r.Evidence = "HTTP " + statusText(obs.NetworkStatus)
	}
	return r
}

func responseMessage(obs *Observations) (string, Channel) {
	if obs.NetworkMessage != "" {
		return obs.NetworkMessage, ChannelNetwork
	}
	if obs.HTTPMessage != "" {
		return obs.HTTPMessage, ChannelHTTP
	}
	return "", ChannelNone
}

// responseBody returns a body that was received but yielded no message.
func responseBody(obs *Observations) (string, Channel) {
	if obs.NetworkHit {
		if body := strings.TrimSpace(obs.NetworkBody); body != "" {
			return body, ChannelNetwork
		}
	}
	if obs.HTTPAttempted {
		if body := strings.TrimSpace(obs.HTTPBody); body != "" {
			return body, ChannelHTTP
		}
	}
	return "", ChannelNone
}
