// Package logging provides config-driven categorized logging on top of zap.
// Each subsystem asks for its own named logger; categories can be switched
// off individually in the config file.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config loading
	CategoryEngine     Category = "engine"     // Run orchestration, retries
	CategorySession    Category = "session"    // Cookie injection, login
	CategoryLocator    Category = "locator"    // Affordance discovery
	CategoryExecutor   Category = "executor"   // Pointer and HTTP channels
	CategoryClassifier Category = "classifier" // Outcome decisions
	CategoryBrowser    Category = "browser"    // Chrome process, CDP events
	CategoryNotify     Category = "notify"     // Notification sinks
	CategoryMetrics    Category = "metrics"    // Pushgateway export
)

// Options mirrors config.LoggingConfig plus the CLI verbosity flag.
type Options struct {
	Level      string
	Format     string // json, console
	Verbose    bool
	Categories map[string]bool
}

// Logger hands out category loggers derived from one zap root.
type Logger struct {
	root       *zap.Logger
	categories map[string]bool

	mu    sync.Mutex
	named map[Category]*zap.Logger
}

// New builds the root logger. Verbose forces debug level.
func New(opts Options) (*Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !opts.Verbose

	root, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return Wrap(root, opts.Categories), nil
}

// Wrap adopts an existing zap logger, e.g. zaptest or zap.NewNop in tests.
func Wrap(root *zap.Logger, categories map[string]bool) *Logger {
	if root == nil {
		root = zap.NewNop()
	}
	return &Logger{root: root, categories: categories, named: make(map[Category]*zap.Logger)}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return Wrap(zap.NewNop(), nil)
}

// Get returns (or creates) the logger for a category. Disabled categories
// get a no-op logger.
func (l *Logger) Get(category Category) *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lg, ok := l.named[category]; ok {
		return lg
	}
	lg := zap.NewNop()
	if l.enabled(category) {
		lg = l.root.Named(string(category))
	}
	l.named[category] = lg
	return lg
}

// Root returns the uncategorized logger.
func (l *Logger) Root() *zap.Logger { return l.root }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.root.Sync() }

func (l *Logger) enabled(category Category) bool {
	if l.categories == nil {
		return true
	}
	enabled, exists := l.categories[string(category)]
	return !exists || enabled
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
