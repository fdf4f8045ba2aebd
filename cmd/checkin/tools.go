package main

import (
	"fmt"
	"io"
	"strings"

	"dailycheckin/internal/checkin"
	"dailycheckin/internal/session"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	msg, structured := checkin.ExtractMessage(text, cfg.MessageFields)
	if msg == "" {
		return fmt.Errorf("nothing to classify")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "message: %s\n", msg)
	if !structured && !bareMessage {
		fmt.Fprintf(out, "outcome: %s\n", checkin.OutcomeFailed)
		fmt.Fprintln(out, "reason:  no status field in the response (use --message to classify plain text)")
		return nil
	}
	outcome, word := checkin.NewClassifier(cfg.Keywords, nil).ClassifyMessage(msg)
	fmt.Fprintf(out, "outcome: %s\n", outcome)
	if word != "" {
		fmt.Fprintf(out, "matched: %s\n", word)
	}
	return nil
}

func runCookies(cmd *cobra.Command, args []string) error {
	header := cfg.Credentials.Cookie
	if len(args) == 1 {
		header = args[0]
	}
	if strings.TrimSpace(header) == "" {
		return fmt.Errorf("no cookie header given and NODELOC_COOKIE is empty")
	}

	cookies := session.ParseCookieHeader(header)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d cookie(s)\n", len(cookies))
	for _, name := range session.CookieNames(cookies) {
		fmt.Fprintf(out, "  %s\n", name)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("cookie header has no name=value pairs")
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configWrite != "" {
		if err := cfg.Save(configWrite); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configWrite)
		return nil
	}
	shown := *cfg
	if shown.Notify.TelegramToken != "" {
		shown.Notify.TelegramToken = "<redacted>"
	}
	if shown.Notify.WebhookURL != "" {
		shown.Notify.WebhookURL = "<redacted>"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
