package trace_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-serialx/logger"
	"github.com/jangala-dev/tinygo-serialx/serialx"
	"github.com/jangala-dev/tinygo-serialx/sim"
	"github.com/jangala-dev/tinygo-serialx/trace"
)

func TestPrintf_Threshold(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.New(&buf, trace.Info)

	tr.Printf(trace.Debug, "d%d\r\n", 1)
	tr.Printf(trace.Info, "i%d\r\n", 2)
	tr.Printf(trace.Error, "e%d\r\n", 3)
	assert.Equal(t, "i2\r\ne3\r\n", buf.String())

	assert.False(t, tr.Enabled(trace.Debug))
	assert.True(t, tr.Enabled(trace.Warning))
	assert.False(t, tr.Enabled(trace.Off))

	buf.Reset()
	tr.SetLevel(trace.Off)
	tr.Printf(trace.Error, "quiet")
	assert.Empty(t, buf.String())
	assert.Equal(t, trace.Off, tr.Level())
}

func TestPrintln(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.New(&buf, trace.Debug)

	tr.Println(trace.Warning, "rx overflow ", 3)
	assert.Equal(t, "rx overflow 3\r\n", buf.String())
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("write failed")
}

func TestErr_KeepsFirst(t *testing.T) {
	w := &failWriter{}
	tr := trace.New(w, trace.Debug)

	tr.Printf(trace.Info, "a")
	tr.Printf(trace.Info, "b")
	assert.EqualError(t, tr.Err(), "write failed")
	assert.Equal(t, 2, w.n)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "D", trace.Debug.String())
	assert.Equal(t, "W", trace.Warning.String())
	assert.Equal(t, "off", trace.Off.String())
	assert.Equal(t, "?", trace.Level(42).String())
}

func TestOverSerial(t *testing.T) {
	quiet := logger.NewSlogHandler(slog.NewTextHandler(io.Discard, nil), logger.ErrorLevel)
	b := sim.NewBoard()
	s, err := b.NewSerial(serialx.WithLogger(quiet), serialx.WithTxBufferSize(32))
	require.NoError(t, err)

	tr := trace.New(s, trace.Info)
	tr.Printf(trace.Info, "boot %s\r\n", "ok")
	tr.Printf(trace.Debug, "hidden\r\n")
	b.Drain(64)

	require.NoError(t, tr.Err())
	assert.Equal(t, []byte("boot ok\r\n"), b.UART.Written())
}
