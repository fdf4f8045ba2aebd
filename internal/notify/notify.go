// Package notify delivers the run summary to the operator. Every sink is
// optional; with none configured a dispatch is a silent no-op.
package notify

import (
	"context"
	"net/http"

	"dailycheckin/internal/config"

	"go.uber.org/zap"
)

// Message is one rendered notification.
type Message struct {
	// Text is HTML in the subset Telegram accepts.
	Text    string `json:"text"`
	Outcome string `json:"outcome"`
	RunID   string `json:"run_id"`
}

// Sink is a notification destination.
type Sink interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Dispatcher routes a message to every configured sink.
type Dispatcher struct {
	sinks []Sink
	log   *zap.Logger
}

// NewDispatcher builds the sinks the configuration enables. A nil client
// gets one bounded by the configured timeout.
func NewDispatcher(cfg config.NotifyConfig, client *http.Client, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.GetTimeout()}
	}
	d := &Dispatcher{log: log}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		d.sinks = append(d.sinks, NewTelegramSink(cfg.TelegramAPI, cfg.TelegramToken, cfg.TelegramChatID, client))
	}
	if cfg.WebhookURL != "" {
		d.sinks = append(d.sinks, NewWebhookSink(cfg.WebhookURL, client))
	}
	return d
}

// NewDispatcherWith creates a dispatcher over explicit sinks.
func NewDispatcherWith(log *zap.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sinks: sinks, log: log}
}

// Sinks returns the names of the active sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch sends msg to all sinks. Delivery failures are logged and
// counted, never fatal.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (failed int) {
	if len(d.sinks) == 0 {
		d.log.Debug("no notification sink configured")
		return 0
	}
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, msg); err != nil {
			failed++
			d.log.Warn("notification failed", zap.String("sink", sink.Name()), zap.Error(err))
			continue
		}
		d.log.Info("notification sent", zap.String("sink", sink.Name()))
	}
	return failed
}
