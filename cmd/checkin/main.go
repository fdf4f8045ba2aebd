package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dailycheckin/internal/checkin"
	"dailycheckin/internal/config"
	"dailycheckin/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgPath  string
	verbose  bool
	timeout  time.Duration
	headless bool
	attempts int
	noNotify bool

	cfg  *config.Config
	logs *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Perform the daily forum check-in",
	Long: `checkin signs in to the forum (captured cookie or username/password),
finds the daily check-in control, presses it like a person would, and
reports exactly one outcome:

  success        the check-in was accepted
  already_done   the account had already checked in today
  failed         an attempt was made and rejected or not understood
  untriggered    nothing could be triggered (control or endpoint missing)
  login_failed   no session could be established

Secrets come from the environment: NODELOC_COOKIE, or NODELOC_USERNAME and
NODELOC_PASSWORD. Telegram delivery uses TG_BOT_TOKEN and TG_USER_ID.

Run without a subcommand to check in.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logs != nil {
			_ = logs.Sync()
		}
	},
	RunE: runCheckin,
}

// runCmd is the explicit form of the root command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check in once, retrying inconclusive attempts",
	RunE:  runCheckin,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [message]",
	Short: "Classify a response message with the configured keyword sets",
	Long: `Runs a response body through message extraction and the keyword
classifier, exactly as a live run would: a body without a status field is a
failure whatever words it contains. Reads stdin when no argument is given.

Examples:
  checkin classify '{"message":"今天已经签到"}'
  checkin classify --message '签到成功，获得 10 能量'`,
	RunE: runClassify,
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies [header]",
	Short: "Parse a Cookie header and list the cookie names",
	Long: `Parses a captured Cookie header (default: NODELOC_COOKIE) and lists
the cookie names it contains, without printing values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCookies,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (secrets redacted)",
	RunE:  runConfig,
}

var (
	configWrite string
	bareMessage bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("CHECKIN_CONFIG"), "Config file (YAML); defaults apply when absent")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall deadline including retries")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "Run Chrome without a window")
	rootCmd.PersistentFlags().IntVar(&attempts, "attempts", 0, "Maximum attempts (overrides retry.max_attempts)")
	rootCmd.PersistentFlags().BoolVar(&noNotify, "no-notify", false, "Skip notifications")

	classifyCmd.Flags().BoolVar(&bareMessage, "message", false, "Treat the input as the status message itself")
	configCmd.Flags().StringVar(&configWrite, "write", "", "Write the effective configuration to this path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(cookiesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var oe *outcomeError
		if errors.As(err, &oe) {
			os.Exit(oe.code())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger. Flags override the
// file and the environment.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("headless") {
		loaded.Browser.Headless = headless
	}
	if flags.Changed("attempts") {
		loaded.Retry.MaxAttempts = attempts
	}
	cfg = loaded

	logs, err = logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Verbose:    verbose,
		Categories: cfg.Logging.Categories,
	})
	if err != nil {
		return err
	}
	logs.Get(logging.CategoryBoot).Debug("configuration loaded",
		zap.String("path", cfgPath),
		zap.String("base_url", cfg.Target.BaseURL),
		zap.Bool("cookie", cfg.Credentials.HasCookie()),
		zap.Bool("login", cfg.Credentials.HasLogin()))
	return nil
}

// outcomeError carries a non-OK outcome to the exit status.
type outcomeError struct {
	outcome checkin.Outcome
}

func (e *outcomeError) Error() string { return "check-in outcome: " + e.outcome.String() }

func (e *outcomeError) code() int {
	if e.outcome == checkin.OutcomeLoginFailed {
		return 2
	}
	return 1
}
