package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), WarnLevel)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn", "uart", "UART0")
	l.Error("error")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "warn", recs[0]["msg"])
	assert.Equal(t, "UART0", recs[0]["uart"])
	assert.Equal(t, "error", recs[1]["msg"])
	assert.Equal(t, WarnLevel, l.Level())

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("debug")
	assert.Len(t, decodeLines(t, &buf), 1)
	assert.Equal(t, DebugLevel, l.Level())
}

func TestSlogHandler_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewSlogHandler(slog.NewJSONHandler(&buf, nil), InfoLevel)
	child := parent.With("uart", "UART1")

	child.Info("child")
	parent.Info("parent")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "UART1", recs[0]["uart"])
	assert.NotContains(t, recs[1], "uart")

	// The child shares its parent's level.
	parent.SetLevel(ErrorLevel)
	buf.Reset()
	child.Info("dropped")
	assert.Empty(t, buf.String())
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, InfoLevel)

	l.Debug("hidden")
	l.Info("serial configured", "line", "115200-8N1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "serial configured")
	assert.Contains(t, out, "115200-8N1")
}

func TestDefaultLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	m := NewMockLogger()
	m.On("Info", "hello", mock.Anything).Once()
	m.On("SetLevel", DebugLevel).Once()

	SetLogger(m)
	SetLogger(nil)
	assert.Same(t, m, GetLogger())

	Info("hello", "k", 1)
	SetLevel(DebugLevel)
	m.AssertExpectations(t)
}
