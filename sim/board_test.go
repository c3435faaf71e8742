package sim

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-serialx/logger"
	"github.com/jangala-dev/tinygo-serialx/serialx"
)

func newBoardSerial(t *testing.T, opts ...serialx.Option) (*Board, *serialx.Serial) {
	t.Helper()

	quiet := logger.NewSlogHandler(slog.NewTextHandler(io.Discard, nil), logger.ErrorLevel)
	b := NewBoard()
	s, err := b.NewSerial(append([]serialx.Option{serialx.WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return b, s
}

func TestBoard_Echo(t *testing.T) {
	b, s := newBoardSerial(t)

	assert.True(t, b.CPU.GlobalEnabled())
	assert.Equal(t, 5, b.Receive([]byte("hello")...))

	p := make([]byte, 16)
	n := s.TryRead(p)
	assert.Equal(t, 5, s.TryWrite(p[:n]))
	b.Drain(16)
	assert.Equal(t, []byte("hello"), b.UART.Written())
}

func TestBoard_ReceiveInsideCriticalSection(t *testing.T) {
	b, s := newBoardSerial(t)

	state := b.CPU.DisableInterrupts()
	assert.Equal(t, 0, b.Receive('a', 'b'))
	b.CPU.RestoreInterrupts(state)

	// One latched request services one byte; the second waits for a Tick.
	assert.Equal(t, 1, s.Buffered())
	b.Tick()
	assert.Equal(t, 2, s.Buffered())
}

func TestBoard_DrainLimit(t *testing.T) {
	b, s := newBoardSerial(t, serialx.WithTxBufferSize(8))

	require.Equal(t, 8, s.TryWrite([]byte("abcdefgh")))
	assert.Equal(t, 3, b.Drain(3))
	assert.True(t, s.TxBusy())
	assert.Equal(t, 5, b.Drain(100))
	assert.False(t, s.TxBusy())
}

func TestBoard_Run(t *testing.T) {
	b, s := newBoardSerial(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx, 100*time.Microsecond)
	}()

	_, err := s.Write([]byte("run"))
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))
	cancel()
	<-done

	assert.Equal(t, []byte("run"), b.UART.Written())
}

func TestBoard_ReceiveWithConcurrentTick(t *testing.T) {
	assert := assert.New(t)
	b, s := newBoardSerial(t, serialx.WithRxBufferSize(serialx.MaxBufferSize))

	ctx, cancel := context.WithCancel(context.Background())
	ticking := make(chan struct{})
	go func() {
		defer close(ticking)
		for ctx.Err() == nil {
			b.Tick()
		}
	}()

	const n = 20000
	for i := 0; i < n; i++ {
		b.Receive('A')
	}
	cancel()
	<-ticking
	b.Tick()

	// Each byte is serviced exactly once, by Receive or by Tick.
	assert.False(b.UART.ReceivePending())
	assert.Equal(n, s.Buffered())

	got := make([]byte, serialx.MaxBufferSize)
	k := s.TryRead(got)
	require.Equal(t, n, k)
	assert.Equal(-1, bytes.IndexFunc(got[:k], func(r rune) bool { return r != 'A' }))

	st := s.Stats()
	assert.Equal(uint32(n), st.RxInterrupts)
	assert.Equal(uint32(n), st.RxBytes)
	assert.Zero(st.RxDropped)
	assert.Equal(n, b.UART.Reads())
}
