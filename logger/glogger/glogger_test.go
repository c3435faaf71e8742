package glogger

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jangala-dev/tinygo-serialx/logger"
)

func TestFormatPairs(t *testing.T) {
	tests := []struct {
		name string
		kv   []any
		want string
	}{
		{"empty", nil, ""},
		{"pairs", []any{"uart", "UART0", "dropped", 3}, " uart=UART0 dropped=3"},
		{"dangling key", []any{"uart"}, " uart=!MISSING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPairs(tt.kv))
		})
	}
}

func TestWith(t *testing.T) {
	assert := assert.New(t)

	l := New(logger.WarnLevel)
	child := l.With("uart", "UART1").(*glogLogger)

	assert.Equal(" uart=UART1", child.fields)
	assert.Equal("overflow uart=UART1 n=2", child.format("overflow", []any{"n", 2}))

	// Children share the level.
	l.SetLevel(logger.ErrorLevel)
	assert.Equal(logger.ErrorLevel, child.Level())
	assert.False(child.enabled(logger.WarnLevel))
	assert.True(child.enabled(logger.ErrorLevel))
}

func TestLevels(t *testing.T) {
	// Keep glog off the filesystem.
	_ = flag.Set("logtostderr", "true")

	tests := []struct {
		name  string
		level logger.Level
	}{
		{"debug", logger.DebugLevel},
		{"info", logger.InfoLevel},
		{"warn", logger.WarnLevel},
		{"error", logger.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l logger.Logger = New(tt.level)
			assert.NotPanics(t, func() {
				l.Debug("rx dropped", "n", 1)
				l.Info("configured", "baud", 115200)
				l.Warn("overflow")
				l.Error("closed", "uart", "UART0")
			})
			assert.Equal(t, tt.level, l.Level())
		})
	}
}
