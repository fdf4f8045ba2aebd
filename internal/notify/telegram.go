package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TelegramSink posts messages through the Bot API sendMessage method.
type TelegramSink struct {
	api    string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSink creates a Telegram sink. An empty api uses the public endpoint.
func NewTelegramSink(api, token, chatID string, client *http.Client) *TelegramSink {
	if api == "" {
		api = "https://api.telegram.org"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramSink{api: strings.TrimRight(api, "/"), token: token, chatID: chatID, client: client}
}

// Name returns the sink identifier.
func (s *TelegramSink) Name() string { return "telegram" }

type sendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers msg as HTML with link previews disabled.
func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(sendMessage{
		ChatID:                s.chatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.api+"/bot"+s.token+"/sendMessage", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("telegram sendMessage failed: %w", redact(err, s.token))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("telegram returned status %d, reading reply: %w", resp.StatusCode, redact(err, s.token))
	}
	var reply apiReply
	if err := json.Unmarshal(body, &reply); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("telegram returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("telegram reply is not JSON (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !reply.OK {
		if reply.Description != "" {
			return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, reply.Description)
		}
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, "<token>"))
}
