// Package checkin locates the daily check-in affordance, triggers it through
// the page or a direct HTTP call, and classifies what happened.
package checkin

// Outcome is the single verdict of a run.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
	OutcomeAlreadyDone
	OutcomeUntriggered
	OutcomeLoginFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyDone:
		return "already_done"
	case OutcomeUntriggered:
		return "untriggered"
	case OutcomeLoginFailed:
		return "login_failed"
	default:
		return "failed"
	}
}

// OK reports whether the account is checked in for today.
func (o Outcome) OK() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyDone
}

// Retryable reports whether another independent attempt could change the verdict.
func (o Outcome) Retryable() bool {
	return o == OutcomeFailed || o == OutcomeUntriggered
}

// AllOutcomes lists every outcome, for metric label pre-registration.
func AllOutcomes() []Outcome {
	return []Outcome{OutcomeSuccess, OutcomeAlreadyDone, OutcomeFailed, OutcomeUntriggered, OutcomeLoginFailed}
}
