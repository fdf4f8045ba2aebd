package checkin

import (
	"errors"
	"strings"
	"testing"

	"dailycheckin/internal/config"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	return NewClassifier(config.DefaultKeywords(), nil)
}

func TestClassify_NetworkSuccess(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{
		Triggered:      true,
		NetworkHit:     true,
		NetworkMessage: "签到成功，获得 5 能量",
	})
	assert.Equal(t, OutcomeSuccess, r.Outcome)
	assert.Equal(t, ChannelNetwork, r.Channel)
	assert.Equal(t, "签到成功，获得 5 能量", r.Evidence)
}

func TestClassify_NetworkAlreadyDone(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{NetworkHit: true, NetworkMessage: "今天已经签到"})
	assert.Equal(t, OutcomeAlreadyDone, r.Outcome)
}

func TestClassify_SuccessBeatsAlready(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{NetworkHit: true, NetworkMessage: "签到成功 (already rewarded today)"})
	assert.Equal(t, OutcomeSuccess, r.Outcome)
}

func TestClassify_EmptyIsUntriggered(t *testing.T) {
	c := newTestClassifier()
	assert.Equal(t, OutcomeUntriggered, c.Classify(&Observations{}).Outcome)
	assert.Equal(t, OutcomeUntriggered, c.Classify(nil).Outcome)
}

func TestClassify_PreCompletedWinsOverEverything(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{
		PreState:       &ElementState{Present: true, Completed: true, Label: "已签到"},
		NetworkHit:     true,
		NetworkMessage: "internal error",
		HTTPAttempted:  true,
		HTTPMessage:    "签到成功",
		InteractionErr: errors.New("boom"),
	})
	assert.Equal(t, OutcomeAlreadyDone, r.Outcome)
	assert.Equal(t, ChannelPreState, r.Channel)
	assert.Equal(t, "已签到", r.Evidence)
}

func TestClassify_NetworkBeforeHTTP(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{
		NetworkHit:     true,
		NetworkMessage: "今天已经签到",
		HTTPAttempted:  true,
		HTTPMessage:    "签到成功",
	})
	assert.Equal(t, OutcomeAlreadyDone, r.Outcome)
	assert.Equal(t, ChannelNetwork, r.Channel)
}

func TestClassify_UnrecognizedMessageFails(t *testing.T) {
	body := `{"message":"请先登录"}`
	r := newTestClassifier().Classify(&Observations{HTTPAttempted: true, HTTPStatus: 403, HTTPBody: body, HTTPMessage: "请先登录"})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, "unrecognized response", r.Reason)
	assert.Equal(t, "请先登录", r.Evidence)
	assert.Equal(t, ChannelHTTP, r.Channel)
}

// Keywords inside a body that carried no status field must not decide the outcome.
func TestClassify_UnstructuredBodyFails(t *testing.T) {
	html := "<html><body>403 Forbidden · 登录后获得更多能量</body></html>"
	fieldless := `{"errors_type":"invalid_access","error_code":"已签到"}`
	tests := []struct {
		name    string
		obs     *Observations
		reason  string
		channel Channel
		want    string
	}{
		{
			name:    "html with success words",
			obs:     &Observations{HTTPAttempted: true, HTTPStatus: 403, HTTPBody: html},
			reason:  "non-JSON response",
			channel: ChannelHTTP,
			want:    html,
		},
		{
			name:    "json without candidate field",
			obs:     &Observations{HTTPAttempted: true, HTTPStatus: 200, HTTPBody: fieldless},
			reason:  "response carried no status message",
			channel: ChannelHTTP,
			want:    fieldless,
		},
		{
			name: "intercepted html beats a dom change",
			obs: &Observations{
				Triggered:   true,
				NetworkHit:  true,
				NetworkBody: "  签到成功 " + html + "\n",
				PreState:    &ElementState{Present: true, Label: "签到"},
				PostState:   &ElementState{},
			},
			reason:  "non-JSON response",
			channel: ChannelNetwork,
			want:    "签到成功 " + html,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestClassifier().Classify(tc.obs)
			assert.Equal(t, OutcomeFailed, r.Outcome)
			assert.Equal(t, tc.reason, r.Reason)
			assert.Equal(t, tc.channel, r.Channel)
			assert.Equal(t, tc.want, r.Evidence)
		})
	}
}

func TestClassify_DOMTransitions(t *testing.T) {
	pre := &ElementState{Present: true, Classes: []string{"checkin-button"}, Label: "签到"}
	tests := []struct {
		name string
		post *ElementState
		want Outcome
	}{
		{"disabled", &ElementState{Present: true, Disabled: true, Completed: true, Label: "签到"}, OutcomeSuccess},
		{"completed class", &ElementState{Present: true, Classes: []string{"checkin-button", "checked-in"}, Completed: true, Label: "签到"}, OutcomeSuccess},
		{"label changed", &ElementState{Present: true, Label: "已签到", Completed: true}, OutcomeSuccess},
		{"disappeared", &ElementState{}, OutcomeSuccess},
		{"unchanged", &ElementState{Present: true, Classes: []string{"checkin-button"}, Label: "签到"}, OutcomeUntriggered},
		{"unreadable", nil, OutcomeUntriggered},
	}
	c := newTestClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := c.Classify(&Observations{PreState: pre, PostState: tc.post, Triggered: true})
			assert.Equal(t, tc.want, r.Outcome, r.Reason)
			if tc.want == OutcomeSuccess {
				assert.Equal(t, ChannelDOM, r.Channel)
			}
		})
	}
}

func TestClassify_AttemptWithoutEvidenceFails(t *testing.T) {
	c := newTestClassifier()

	r := c.Classify(&Observations{InteractionErr: errors.New("move pointer: target closed")})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Contains(t, r.Reason, "target closed")

	r = c.Classify(&Observations{HTTPAttempted: true, HTTPStatus: 204})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, "HTTP 204 No Content", r.Evidence)

	r = c.Classify(&Observations{NetworkHit: true, NetworkStatus: 500})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, ChannelNetwork, r.Channel)
}

func TestClassify_LocateErrorIsUntriggeredReason(t *testing.T) {
	r := newTestClassifier().Classify(&Observations{LocateErr: ErrLocatorTimeout})
	assert.Equal(t, OutcomeUntriggered, r.Outcome)
	assert.Equal(t, ErrLocatorTimeout.Error(), r.Reason)
}

func TestClassifyMessage_ConfiguredVocabulary(t *testing.T) {
	c := NewClassifier(config.KeywordConfig{Success: []string{"Bravo"}, Already: []string{"encore"}}, nil)

	out, word := c.ClassifyMessage("ＢＲＡＶＯ!")
	assert.Equal(t, OutcomeSuccess, out)
	assert.Equal(t, "Bravo", word)

	out, _ = c.ClassifyMessage("Encore une fois")
	assert.Equal(t, OutcomeAlreadyDone, out)

	out, _ = c.ClassifyMessage("签到成功")
	assert.Equal(t, OutcomeFailed, out, "default vocabulary must not leak in")
}

func TestExtractMessage(t *testing.T) {
	fields := config.DefaultConfig().MessageFields
	tests := []struct {
		name       string
		body       string
		want       string
		structured bool
	}{
		{"message field", `{"message":"签到成功"}`, "签到成功", true},
		{"first non-empty wins", `{"message":"","msg":"  ","notice":"n1","error":"e"}`, "n1", true},
		{"field order not body order", `{"detail":"d","msg":"m"}`, "m", true},
		{"errors list", `{"errors":["您今天已经签到过了","x"]}`, "您今天已经签到过了; x", true},
		{"boolean field ignored", `{"error":false}`, `{"error":false}`, false},
		{"no candidate field", `{"success":false}`, `{"success":false}`, false},
		{"json array", `["a"]`, `["a"]`, false},
		{"plain text", "  Too many requests\n", "Too many requests", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, structured := ExtractMessage(tc.body, fields)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.structured, structured)
		})
	}
}

func TestExtractMessage_CapsRawText(t *testing.T) {
	body := strings.Repeat("签", 400)
	got, structured := ExtractMessage(body, nil)
	assert.False(t, structured)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len(got), maxMessage+len("…"))
	assert.True(t, strings.HasPrefix(body, strings.TrimSuffix(got, "…")), "cut on a rune boundary")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "already_done", OutcomeAlreadyDone.String())
	assert.True(t, OutcomeAlreadyDone.OK())
	assert.False(t, OutcomeUntriggered.OK())
	assert.True(t, OutcomeUntriggered.Retryable())
	assert.False(t, OutcomeLoginFailed.Retryable())
	assert.Len(t, AllOutcomes(), 5)
}
