// serialx/serial_io.go

package serialx

import (
	"context"
	"errors"
	"time"
)

// Readable returns a coalesced notification for RX readiness.
// OnReceiveComplete sends on this channel after queueing a byte.
// The channel is level-coalesced; callers must re-check state after waking.
func (s *Serial) Readable() <-chan struct{} { return s.notify }

// Writable returns a coalesced notification for TX progress or space.
// OnTransmitReady sends on this channel whenever it retires a byte.
// The channel is level-coalesced; callers must re-check state after waking.
func (s *Serial) Writable() <-chan struct{} { return s.txNotify }

// Done is closed when the driver is closed.
func (s *Serial) Done() <-chan struct{} { return s.done }

// TryRead returns immediately with up to len(p) bytes copied from the RX path.
// It never blocks and never returns an error. A return value of 0 means “no data now”.
func (s *Serial) TryRead(p []byte) int {
	n := 0
	for n < len(p) {
		b, err := s.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n
}

// Read implements io.Reader with TinyGo machine.UART semantics: it does not
// block and returns 0, nil when nothing is buffered. After Close, once the
// buffered bytes are consumed, it returns ErrClosed.
func (s *Serial) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if n := s.TryRead(p); n > 0 {
		return n, nil
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return 0, nil
}

// TryWrite returns immediately with 0..len(p) bytes accepted. It stops at the
// first byte the tx ring cannot take. A return value of 0 means “no space now”.
func (s *Serial) TryWrite(p []byte) int {
	n := 0
	for n < len(p) {
		if s.WriteByte(p[n]) != nil {
			break
		}
		n++
	}
	return n
}

// Write implements io.Writer. It blocks until every byte in p has been
// accepted by the driver. It does not wait for the bytes to leave the
// hardware; use Flush for that.
func (s *Serial) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// WriteContext writes p, waiting on Writable whenever the tx ring is full,
// until all bytes are accepted, ctx is done or the driver is closed.
// It returns the number of bytes accepted.
func (s *Serial) WriteContext(ctx context.Context, p []byte) (int, error) {
	tick := s.charTicks(2)
	sent := 0
	for sent < len(p) {
		err := s.WriteByte(p[sent])
		if err == nil {
			sent++
			continue
		}
		if !errors.Is(err, ErrBufferFull) {
			return sent, err
		}
		// Another waiter may have taken the wake; the tick bounds the wait.
		select {
		case <-s.txNotify: // progress likely occurred; retry
		case <-time.After(tick):
		case <-s.done:
			return sent, ErrClosed
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

// WaitReadable blocks until at least one byte can be read, ctx is done or the
// driver is closed.
func (s *Serial) WaitReadable(ctx context.Context) error {
	for {
		if s.rx.Size() == 0 {
			if s.closed.Load() {
				return ErrClosed
			}
			if s.tr.ReceivePending() {
				return nil
			}
		} else if s.Buffered() > 0 {
			return nil
		}
		if err := s.waitRx(ctx); err != nil {
			return err
		}
	}
}

// waitRx waits for an RX notification. Direct mode has no handler to notify
// it, so it polls at roughly two character times.
func (s *Serial) waitRx(ctx context.Context) error {
	var tick <-chan time.Time
	if s.rx.Size() == 0 {
		tick = time.After(s.charTicks(2))
	}
	select {
	case <-s.notify:
	case <-tick:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ReadContext blocks until at least one byte is available, then reads up to len(p).
func (s *Serial) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n := s.TryRead(p); n > 0 {
			return n, nil
		}
		if err := s.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadFullContext blocks until len(p) bytes have been read or ctx is done.
func (s *Serial) ReadFullContext(ctx context.Context, p []byte) (int, error) {
	read := 0
	for read < len(p) {
		if n := s.TryRead(p[read:]); n > 0 {
			read += n
			continue
		}
		if err := s.WaitReadable(ctx); err != nil {
			return read, err
		}
	}
	return read, nil
}

// ReadByteContext blocks for a single byte or until ctx is done.
func (s *Serial) ReadByteContext(ctx context.Context) (byte, error) {
	for {
		if b, err := s.ReadByte(); err == nil {
			return b, nil
		}
		if err := s.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// WaitWritable blocks until WriteByte can accept a byte, ctx is done or the
// driver is closed.
func (s *Serial) WaitWritable(ctx context.Context) error {
	for {
		if s.closed.Load() {
			return ErrClosed
		}
		if s.tx.Size() == 0 || s.TxFree() > 0 {
			return nil
		}
		select {
		case <-s.txNotify:
		case <-time.After(s.charTicks(2)):
		case <-s.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Flush blocks until the transmit path is Idle: every queued byte has been
// handed to the data register and the tx-ready source is disabled. The last
// byte may still be shifting out of the hardware when Flush returns.
func (s *Serial) Flush(ctx context.Context) error {
	if s.tx.Size() == 0 {
		return nil
	}
	tick := s.charTicks(2)
	for {
		if !s.TxBusy() {
			return nil
		}
		// Wake promptly if the handler made progress; otherwise fall back to a short tick.
		select {
		case <-s.txNotify:
		case <-time.After(tick):
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// charTicks returns the wire time of n frames at the configured line
// setting, with a lower bound to avoid busy spinning.
func (s *Serial) charTicks(n int) time.Duration {
	line := s.cfg.Line()
	if line.BaudRate == 0 {
		return 50 * time.Microsecond
	}
	bits := 1 + DataBits + int(line.StopBits)
	if line.Parity != ParityNone {
		bits++
	}
	perBit := time.Second / time.Duration(line.BaudRate)
	t := time.Duration(n*bits) * perBit
	if t < 20*time.Microsecond {
		t = 20 * time.Microsecond
	}
	return t
}
