package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"dailycheckin/internal/checkin"
)

// Beijing is the display zone of every timestamp. A fixed offset avoids
// depending on the host's tzdata.
var Beijing = time.FixedZone("CST", 8*60*60)

// maxEvidence caps raw evidence quoted in a message.
const maxEvidence = 300

// RenderOptions carries display-only context.
type RenderOptions struct {
	// Site labels the message, e.g. the target host.
	Site string
	// Email, when set, is shown masked instead of the page account name.
	Email string
	// MaxAttempts is shown next to the attempt number when greater than one.
	MaxAttempts int
}

var titles = map[checkin.Outcome]string{
	checkin.OutcomeSuccess:     "✅ Check-in succeeded",
	checkin.OutcomeAlreadyDone: "🟢 Already checked in today",
	checkin.OutcomeFailed:      "❌ Check-in failed",
	checkin.OutcomeUntriggered: "⚠️ Check-in not triggered",
	checkin.OutcomeLoginFailed: "🔒 Login failed",
}

// Render turns a report into the operator message.
func Render(rep *checkin.Report, opts RenderOptions) Message {
	var b strings.Builder

	title := titles[rep.Outcome]
	if opts.Site != "" {
		title = fmt.Sprintf("%s · %s", title, opts.Site)
	}
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(title))

	account := MaskName(rep.Account)
	if opts.Email != "" {
		account = MaskEmail(opts.Email)
	}
	fmt.Fprintf(&b, "Account: %s\n", html.EscapeString(account))
	fmt.Fprintf(&b, "Time: %s\n", rep.StartedAt.In(Beijing).Format("2006-01-02 15:04:05"))
	if opts.MaxAttempts > 1 {
		fmt.Fprintf(&b, "Attempt: %d/%d\n", rep.Attempt, opts.MaxAttempts)
	}
	if rep.Channel != "" && rep.Channel != checkin.ChannelNone {
		fmt.Fprintf(&b, "Via: %s\n", rep.Channel)
	}
	if !rep.Outcome.OK() && rep.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", html.EscapeString(rep.Reason))
	}
	if rep.Evidence != "" {
		fmt.Fprintf(&b, "Detail: <code>%s</code>\n", html.EscapeString(clip(rep.Evidence, maxEvidence)))
	}

	return Message{
		Text:    strings.TrimRight(b.String(), "\n"),
		Outcome: rep.Outcome.String(),
		RunID:   rep.RunID,
	}
}

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(email string) string {
	user, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return ""
	}
	r := []rune(user)
	switch len(r) {
	case 0, 1:
		return "*@" + domain
	case 2:
		return string(r[0]) + "*@" + domain
	default:
		return string(r[:2]) + strings.Repeat("*", len(r)-2) + "@" + domain
	}
}

// MaskName keeps the first and last character.
func MaskName(name string) string {
	r := []rune(strings.TrimSpace(name))
	switch len(r) {
	case 0:
		return "***"
	case 1:
		return "*"
	case 2:
		return string(r[0]) + "*"
	default:
		return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
