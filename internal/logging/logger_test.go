package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_NamesLoggerByCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), nil)

	l.Get(CategorySession).Info("cookies injected", zap.Int("count", 2))
	l.Get(CategoryExecutor).Debug("pressed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "session", entries[0].LoggerName)
	assert.Equal(t, "cookies injected", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["count"])
	assert.Equal(t, "executor", entries[1].LoggerName)
}

func TestGet_DisabledCategoryIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), map[string]bool{"browser": false, "session": true})

	l.Get(CategoryBrowser).Error("should not appear")
	l.Get(CategorySession).Info("visible")
	l.Get(CategoryNotify).Info("unlisted categories are on")

	assert.Equal(t, 2, logs.Len())
}

func TestGet_Cached(t *testing.T) {
	l := Nop()
	assert.Same(t, l.Get(CategoryEngine), l.Get(CategoryEngine))
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		l, err := New(Options{Level: "warn", Format: format})
		require.NoError(t, err, format)
		assert.False(t, l.Root().Core().Enabled(zapcore.InfoLevel))
	}

	l, err := New(Options{Level: "error", Verbose: true})
	require.NoError(t, err)
	assert.True(t, l.Root().Core().Enabled(zapcore.DebugLevel), "verbose forces debug")

	_, err = New(Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
