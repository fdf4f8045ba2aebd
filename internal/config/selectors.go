package config

import "time"

// Affordance is one structural pattern under which the check-in control renders.
type Affordance struct {
	Name string `yaml:"name"`
	// Hover, when set, is pointed at first to open a dropdown.
	Hover  string `yaml:"hover"`
	Target string `yaml:"target"`
	// Wait bounds how long this pattern is given to resolve.
	Wait string `yaml:"wait"`
}

// GetWait returns the per-affordance wait.
func (a Affordance) GetWait() time.Duration {
	return parseDuration(a.Wait, 5*time.Second)
}

// SelectorConfig holds DOM selectors and the phrases that mark the
// affordance as already used.
type SelectorConfig struct {
	Affordances []Affordance `yaml:"affordances"`

	LoginUser     string `yaml:"login_user"`
	LoginPassword string `yaml:"login_password"`
	LoginSubmit   string `yaml:"login_submit"`
	LoginAlert    string `yaml:"login_alert"`

	// Avatar marks a logged-in header; its alt/title names the account.
	Avatar string `yaml:"avatar"`

	CompletedClasses []string `yaml:"completed_classes"`
	CompletedPhrases []string `yaml:"completed_phrases"`

	CSRFCookies []string `yaml:"csrf_cookies"`
	CSRFMeta    string   `yaml:"csrf_meta"`
}

// DefaultSelectors matches the Discourse check-in plugin markup.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Affordances: []Affordance{
			{
				Name:   "dropdown-icon",
				Hover:  "li.header-dropdown-toggle.checkin-icon",
				Target: "li.header-dropdown-toggle.checkin-icon svg.d-icon-calendar-check",
				Wait:   "8s",
			},
			{
				Name:   "button",
				Target: "button.checkin-button",
				Wait:   "3s",
			},
		},
		LoginUser:        "#login-account-name",
		LoginPassword:    "#login-account-password",
		LoginSubmit:      "#login-button",
		LoginAlert:       "#modal-alert",
		Avatar:           "img.avatar",
		CompletedClasses: []string{"checked-in", "is-checked", "checkin-done", "already-checked"},
		CompletedPhrases: []string{"已签到", "今日已签到", "今天已经签到", "already checked in"},
		CSRFCookies:      []string{"XSRF-TOKEN", "csrf_token", "_csrf"},
		CSRFMeta:         "csrf-token",
	}
}

// KeywordConfig holds the message classification vocabularies. They are
// data so wording drift on the target is a config change.
type KeywordConfig struct {
	Success []string `yaml:"success"`
	Already []string `yaml:"already"`
	// Blocked marks a login page that demands a second factor or captcha.
	Blocked []string `yaml:"blocked"`
}

// DefaultKeywords returns the vocabularies observed on the target.
func DefaultKeywords() KeywordConfig {
	return KeywordConfig{
		Success: []string{"签到成功", "成功", "获得", "能量", "checked in successfully", "reward"},
		Already: []string{
			"已签到", "今天已经签到", "已经签到", "重复", "无效", "系统繁忙", "尝试次数过多",
			"already", "duplicate", "too many", "rate limit", "busy",
		},
		Blocked: []string{"second_factor", "二次", "验证码", "otp", "2fa", "captcha", "two-factor"},
	}
}
