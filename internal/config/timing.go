package config

import "time"

// TimingConfig holds every bounded wait of a run. All values are
// time.ParseDuration strings; unparsable values fall back to the defaults.
type TimingConfig struct {
	LoginTimeout     string `yaml:"login_timeout"`      // credential fields + post-submit condition
	PageSettle       string `yaml:"page_settle"`        // quiescence after loading the home view
	HoverDwell       string `yaml:"hover_dwell"`        // pause after hovering a dropdown toggle
	PressDwell       string `yaml:"press_dwell"`        // pause between pointer move and press
	PressHold        string `yaml:"press_hold"`         // pause between press and release
	ActionSettle     string `yaml:"action_settle"`      // wait for the intercepted response
	PostStateTimeout string `yaml:"post_state_timeout"` // re-query of the affordance after acting
	HTTPTimeout      string `yaml:"http_timeout"`       // direct HTTP fallback
}

// DefaultTiming returns the default waits.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		LoginTimeout:     "20s",
		PageSettle:       "5s",
		HoverDwell:       "300ms",
		PressDwell:       "150ms",
		PressHold:        "50ms",
		ActionSettle:     "4s",
		PostStateTimeout: "1s",
		HTTPTimeout:      "30s",
	}
}

// GetLoginTimeout returns the login wait bound.
func (t TimingConfig) GetLoginTimeout() time.Duration {
	return parseDuration(t.LoginTimeout, 20*time.Second)
}

// GetPageSettle returns the fixed settle delay after navigation.
func (t TimingConfig) GetPageSettle() time.Duration {
	return parseDuration(t.PageSettle, 5*time.Second)
}

// GetHoverDwell returns the pause after hovering a toggle.
func (t TimingConfig) GetHoverDwell() time.Duration {
	return parseDuration(t.HoverDwell, 300*time.Millisecond)
}

// GetPressDwell returns the pre-press dwell, never below 150ms.
func (t TimingConfig) GetPressDwell() time.Duration {
	return atLeast(parseDuration(t.PressDwell, 150*time.Millisecond), 150*time.Millisecond)
}

// GetPressHold returns the press hold, never below 50ms.
func (t TimingConfig) GetPressHold() time.Duration {
	return atLeast(parseDuration(t.PressHold, 50*time.Millisecond), 50*time.Millisecond)
}

// GetActionSettle returns the post-trigger settle window.
func (t TimingConfig) GetActionSettle() time.Duration {
	return parseDuration(t.ActionSettle, 4*time.Second)
}

// GetPostStateTimeout returns the wait for re-reading the affordance.
func (t TimingConfig) GetPostStateTimeout() time.Duration {
	return parseDuration(t.PostStateTimeout, time.Second)
}

// GetHTTPTimeout returns the direct HTTP client timeout.
func (t TimingConfig) GetHTTPTimeout() time.Duration {
	return parseDuration(t.HTTPTimeout, 30*time.Second)
}

func atLeast(d, min time.Duration) time.Duration {
	if d < min {
		return min
	}
	return d
}
