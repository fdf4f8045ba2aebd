package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dailycheckin/internal/checkin"
	"dailycheckin/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *checkin.Report {
	return &checkin.Report{
		RunID:     "run-1",
		Attempt:   2,
		Outcome:   checkin.OutcomeFailed,
		Reason:    "unrecognized response",
		Evidence:  `<html>"oops" & more</html>`,
		Channel:   checkin.ChannelHTTP,
		Account:   "alice",
		StartedAt: time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	msg := Render(testReport(), RenderOptions{Site: "www.nodeloc.com", MaxAttempts: 3})

	assert.Equal(t, "failed", msg.Outcome)
	assert.Equal(t, "run-1", msg.RunID)
	lines := strings.Split(msg.Text, "\n")
	assert.Equal(t, []string{
		"<b>❌ Check-in failed · www.nodeloc.com</b>",
		"Account: a***e",
		"Time: 2026-03-02 00:30:00",
		"Attempt: 2/3",
		"Via: http",
		"Reason: unrecognized response",
		"Detail: <code>&lt;html&gt;&#34;oops&#34; &amp; more&lt;/html&gt;</code>",
	}, lines)
}

func TestRender_SuccessIsTerse(t *testing.T) {
	rep := &checkin.Report{Outcome: checkin.OutcomeSuccess, Reason: "response matched 签到成功", Evidence: "签到成功，获得 5 能量", Channel: checkin.ChannelNetwork}
	msg := Render(rep, RenderOptions{Email: "alice@example.com"})

	assert.Contains(t, msg.Text, "✅ Check-in succeeded")
	assert.Contains(t, msg.Text, "Account: al***@example.com")
	assert.Contains(t, msg.Text, "签到成功，获得 5 能量")
	assert.NotContains(t, msg.Text, "Reason:")
	assert.NotContains(t, msg.Text, "Attempt:")
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "al***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "a*@x.io", MaskEmail("ab@x.io"))
	assert.Equal(t, "*@x.io", MaskEmail("a@x.io"))
	assert.Equal(t, "", MaskEmail("not-an-email"))

	assert.Equal(t, "***", MaskName(""))
	assert.Equal(t, "*", MaskName("a"))
	assert.Equal(t, "a*", MaskName("ab"))
	assert.Equal(t, "张*三", MaskName("张小三"))
}

func TestTelegramSink_Send(t *testing.T) {
	var got sendMessage
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer ts.Close()

	sink := NewTelegramSink(ts.URL+"/", "123:abc", "42", ts.Client())
	require.NoError(t, sink.Send(context.Background(), Message{Text: "<b>hi</b>"}))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, sendMessage{ChatID: "42", Text: "<b>hi</b>", ParseMode: "HTML", DisableWebPagePreview: true}, got)
}

func TestTelegramSink_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer ts.Close()

	err := NewTelegramSink(ts.URL, "t", "1", ts.Client()).Send(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSink_UnreadableReply(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "64")
				_, _ = w.Write([]byte(`{"ok":tr`))
			},
			want: "reading reply",
		},
		{
			name: "proxy page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>gateway</html>`))
			},
			want: "not JSON (status 200)",
		},
		{
			name: "missing ok flag",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			want: "telegram returned status 200",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			err := NewTelegramSink(ts.URL, "777:tok", "1", ts.Client()).Send(context.Background(), Message{Text: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NotContains(t, err.Error(), "777:tok")
		})
	}
}

func TestTelegramSink_RedactsToken(t *testing.T) {
	sink := NewTelegramSink("http://127.0.0.1:1", "secret-token", "1", &http.Client{Timeout: time.Second})
	err := sink.Send(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestWebhookSink_Send(t *testing.T) {
	var got Message
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer ts.Close()

	msg := Message{Text: "t", Outcome: "success", RunID: "r"}
	require.NoError(t, NewWebhookSink(ts.URL, ts.Client()).Send(context.Background(), msg))
	assert.Equal(t, msg, got)
}

func TestWebhookSink_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := NewWebhookSink(ts.URL, ts.Client()).Send(context.Background(), Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

type recordingSink struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Message
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func TestDispatcher_ContinuesPastFailures(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	d := NewDispatcherWith(nil, bad, good)

	failed := d.Dispatch(context.Background(), Message{Text: "x"})
	assert.Equal(t, 1, failed)
	assert.Len(t, bad.sent, 1)
	assert.Len(t, good.sent, 1)
	assert.Equal(t, []string{"bad", "good"}, d.Sinks())
}

func TestNewDispatcher_FromConfig(t *testing.T) {
	assert.Empty(t, NewDispatcher(config.NotifyConfig{}, nil, nil).Sinks(), "no destination means no-op")
	assert.Equal(t, 0, NewDispatcher(config.NotifyConfig{}, nil, nil).Dispatch(context.Background(), Message{}))

	partial := config.NotifyConfig{TelegramToken: "t"}
	assert.Empty(t, NewDispatcher(partial, nil, nil).Sinks(), "a token without a chat id is not a destination")

	full := config.NotifyConfig{TelegramToken: "t", TelegramChatID: "1", WebhookURL: "http://hook"}
	assert.Equal(t, []string{"telegram", "webhook"}, NewDispatcher(full, nil, nil).Sinks())
}
