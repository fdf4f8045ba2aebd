package config

import "time"

// NotifyConfig configures outbound notifications. Every sink is optional.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	TelegramAPI    string `yaml:"telegram_api"`
	WebhookURL     string `yaml:"webhook_url"`
	Timeout        string `yaml:"timeout"`

	// Email is only displayed, masked, in messages.
	Email string `yaml:"email"`
}

// GetTimeout returns the per-delivery timeout.
func (n NotifyConfig) GetTimeout() time.Duration {
	return parseDuration(n.Timeout, 15*time.Second)
}

// RetryConfig configures the outer retry around whole runs.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	// Backoff is the linear step: attempt n waits n*Backoff before n+1.
	Backoff string `yaml:"backoff"`
}

// GetBackoff returns the linear backoff step.
func (r RetryConfig) GetBackoff() time.Duration {
	return parseDuration(r.Backoff, 30*time.Second)
}

// MetricsConfig configures the Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool { return m.PushgatewayURL != "" }
