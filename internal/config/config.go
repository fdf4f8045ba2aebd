package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is a current desktop Chrome identification string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Config holds all check-in configuration. It is built once at startup and
// handed to each component; nothing else reads the environment.
type Config struct {
	Target    TargetConfig   `yaml:"target"`
	Browser   BrowserConfig  `yaml:"browser"`
	Timing    TimingConfig   `yaml:"timing"`
	Selectors SelectorConfig `yaml:"selectors"`
	Keywords  KeywordConfig  `yaml:"keywords"`

	// MessageFields are the JSON keys tried, in order, for the status text.
	MessageFields []string `yaml:"message_fields"`

	Notify  NotifyConfig  `yaml:"notify"`
	Retry   RetryConfig   `yaml:"retry"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`

	// Secrets only ever come from the environment.
	Credentials Credentials `yaml:"-"`
}

// TargetConfig describes the web application being checked in to.
type TargetConfig struct {
	BaseURL      string `yaml:"base_url"`
	LoginPath    string `yaml:"login_path"`
	EndpointPath string `yaml:"endpoint_path"`
	CSRFPath     string `yaml:"csrf_path"`
	UserAgent    string `yaml:"user_agent"`
}

// BrowserConfig configures the Chrome instance.
type BrowserConfig struct {
	Headless          bool     `yaml:"headless"`
	NoSandbox         bool     `yaml:"no_sandbox"`
	Bin               string   `yaml:"bin"`
	DebuggerURL       string   `yaml:"debugger_url"`
	Flags             []string `yaml:"flags"`
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
}

// Credentials are either a captured Cookie header or a username/password pair.
type Credentials struct {
	Cookie   string
	Username string
	Password string
}

// HasCookie reports whether a pre-captured session was supplied.
func (c Credentials) HasCookie() bool { return strings.TrimSpace(c.Cookie) != "" }

// HasLogin reports whether a complete username/password pair was supplied.
func (c Credentials) HasLogin() bool { return c.Username != "" && c.Password != "" }

// Empty reports whether neither credential shape is usable.
func (c Credentials) Empty() bool { return !c.HasCookie() && !c.HasLogin() }

// DefaultConfig returns the default configuration for the NodeLoc forum.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL:      "https://www.nodeloc.com",
			LoginPath:    "/login",
			EndpointPath: "/checkin",
			CSRFPath:     "/session/csrf",
			UserAgent:    DefaultUserAgent,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			Flags:             []string{"disable-dev-shm-usage"},
			ViewportWidth:     1280,
			ViewportHeight:    800,
			NavigationTimeout: "60s",
		},
		Timing:        DefaultTiming(),
		Selectors:     DefaultSelectors(),
		Keywords:      DefaultKeywords(),
		MessageFields: []string{"message", "msg", "notice", "error", "errors", "detail"},
		Notify: NotifyConfig{
			TelegramAPI: "https://api.telegram.org",
			Timeout:     "15s",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     "30s",
		},
		Metrics: MetricsConfig{
			Job: "daily_checkin",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file. Credentials, the Telegram token and
// the webhook URL are never written; they come back from the environment.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.Notify.TelegramToken = ""
	out.Notify.WebhookURL = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	c.Credentials.Cookie = strings.TrimSpace(os.Getenv("NODELOC_COOKIE"))
	c.Credentials.Username = os.Getenv("NODELOC_USERNAME")
	c.Credentials.Password = os.Getenv("NODELOC_PASSWORD")

	if email := strings.TrimSpace(os.Getenv("NODELOC_EMAIL")); email != "" {
		c.Notify.Email = email
	}
	if token := os.Getenv("TG_BOT_TOKEN"); token != "" {
		c.Notify.TelegramToken = token
	}
	if chat := os.Getenv("TG_USER_ID"); chat != "" {
		c.Notify.TelegramChatID = chat
	}
	if hook := os.Getenv("CHECKIN_WEBHOOK_URL"); hook != "" {
		c.Notify.WebhookURL = hook
	}

	if base := os.Getenv("CHECKIN_BASE_URL"); base != "" {
		c.Target.BaseURL = base
	}
	if v := os.Getenv("CHECKIN_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if bin := os.Getenv("CHECKIN_BROWSER_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if gw := os.Getenv("CHECKIN_PUSHGATEWAY_URL"); gw != "" {
		c.Metrics.PushgatewayURL = gw
	}
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 60*time.Second)
}

// Origin returns the parsed base URL without path.
func (c *Config) Origin() (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(c.Target.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base_url %q: %w", c.Target.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base_url %q must be absolute", c.Target.BaseURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

// Validate validates the configuration. Missing credentials are not a
// validation error: they surface as a LoginFailed run so the operator is notified.
func (c *Config) Validate() error {
	if _, err := c.Origin(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Target.EndpointPath, "/") {
		return fmt.Errorf("endpoint_path %q must start with /", c.Target.EndpointPath)
	}
	if len(c.Selectors.Affordances) == 0 {
		return fmt.Errorf("at least one affordance selector is required")
	}
	for i, a := range c.Selectors.Affordances {
		if strings.TrimSpace(a.Target) == "" {
			return fmt.Errorf("affordance %d (%s) has no target selector", i, a.Name)
		}
	}
	if len(c.Keywords.Success) == 0 || len(c.Keywords.Already) == 0 {
		return fmt.Errorf("keyword sets success and already must both be non-empty")
	}
	if len(c.MessageFields) == 0 {
		return fmt.Errorf("message_fields must list at least one key")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
