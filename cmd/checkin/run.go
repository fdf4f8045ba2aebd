package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"syscall"

	"dailycheckin/internal/browser"
	"dailycheckin/internal/checkin"
	"dailycheckin/internal/config"
	"dailycheckin/internal/logging"
	"dailycheckin/internal/metrics"
	"dailycheckin/internal/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runCheckin(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logs.Get(logging.CategoryEngine)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := browser.NewManager(browserConfig(cfg), logs.Get(logging.CategoryBrowser))
	defer func() {
		if err := mgr.Shutdown(); err != nil {
			log.Debug("browser shutdown", zap.Error(err))
		}
	}()

	rep := checkin.NewEngine(cfg, mgr, logs).RunWithRetry(ctx)
	deliver(ctx, rep)
	printReport(cmd.OutOrStdout(), rep)

	if !rep.Outcome.OK() {
		return &outcomeError{outcome: rep.Outcome}
	}
	return nil
}

// deliver notifies and pushes metrics in parallel. Neither affects the
// exit status. Delivery gets its own deadline so an expired run still reports.
func deliver(runCtx context.Context, rep *checkin.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), 2*cfg.Notify.GetTimeout())
	defer cancel()

	var g errgroup.Group
	if !noNotify {
		g.Go(func() error {
			d := notify.NewDispatcher(cfg.Notify, nil, logs.Get(logging.CategoryNotify))
			msg := notify.Render(rep, notify.RenderOptions{
				Site:        siteName(cfg),
				Email:       cfg.Notify.Email,
				MaxAttempts: cfg.Retry.MaxAttempts,
			})
			if failed := d.Dispatch(ctx, msg); failed > 0 {
				return fmt.Errorf("%d notification sink(s) failed", failed)
			}
			return nil
		})
	}
	g.Go(func() error {
		rec := metrics.New(cfg.Metrics, nil, logs.Get(logging.CategoryMetrics))
		rec.Observe(rep)
		return rec.Push(ctx)
	})
	if err := g.Wait(); err != nil {
		logs.Get(logging.CategoryEngine).Warn("reporting incomplete", zap.Error(err))
	}
}

func printReport(w io.Writer, rep *checkin.Report) {
	fmt.Fprintf(w, "outcome:  %s\n", rep.Outcome)
	fmt.Fprintf(w, "attempt:  %d\n", rep.Attempt)
	if rep.Channel != "" {
		fmt.Fprintf(w, "channel:  %s\n", rep.Channel)
	}
	if rep.Reason != "" {
		fmt.Fprintf(w, "reason:   %s\n", rep.Reason)
	}
	if rep.Evidence != "" {
		fmt.Fprintf(w, "evidence: %s\n", rep.Evidence)
	}
	fmt.Fprintf(w, "run:      %s (%s)\n", rep.RunID, rep.Duration.Round(1e6))
}

func browserConfig(c *config.Config) browser.Config {
	bc := browser.DefaultConfig()
	bc.DebuggerURL = c.Browser.DebuggerURL
	bc.Bin = c.Browser.Bin
	bc.Flags = c.Browser.Flags
	bc.Headless = c.Browser.Headless
	bc.NoSandbox = c.Browser.NoSandbox
	bc.ViewportWidth = c.Browser.ViewportWidth
	bc.ViewportHeight = c.Browser.ViewportHeight
	bc.NavigationTimeoutMs = int(c.GetNavigationTimeout().Milliseconds())
	bc.UserAgent = c.Target.UserAgent
	return bc
}

func siteName(c *config.Config) string {
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
