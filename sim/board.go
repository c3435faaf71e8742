// sim/board.go

package sim

import (
	"context"
	"time"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

// Board is a UART and a CPU wired together, the host stand-in for a
// microcontroller running one serialx.Serial.
type Board struct {
	UART *UART
	CPU  *CPU
}

// NewBoard returns a board fresh out of reset.
func NewBoard() *Board {
	return &Board{UART: NewUART(), CPU: NewCPU()}
}

// NewSerial builds a driver on the board's UART and CPU, routes its entry
// points and opens the global gate.
func (b *Board) NewSerial(opts ...serialx.Option) (*serialx.Serial, error) {
	cfg, err := serialx.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	s, err := serialx.New(b.UART, b.CPU, b.CPU, cfg)
	if err != nil {
		return nil, err
	}
	b.Attach(s)
	return s, nil
}

// Attach routes s's interrupt entry points and opens the global gate.
//
// rx-complete is level-triggered: the handler only runs while a byte is
// latched in the receive register, so a request raised by Receive and one
// raised by a concurrent Tick for the same byte service it once.
func (b *Board) Attach(s *serialx.Serial) {
	b.CPU.Attach(serialx.SourceReceiveComplete, func() {
		if b.UART.ReceivePending() {
			s.OnReceiveComplete()
		}
	})
	b.CPU.Attach(serialx.SourceTransmitReady, s.OnTransmitReady)
	b.CPU.EnableGlobal()
}

// Receive puts each byte on the line and raises rx-complete for it. It
// returns how many requests were serviced immediately; the rest stay in the
// receive register queue until a Tick.
func (b *Board) Receive(p ...byte) int {
	n := 0
	for _, c := range p {
		b.UART.Inject(c)
		if b.CPU.Fire(serialx.SourceReceiveComplete) {
			n++
		}
	}
	return n
}

// Tick advances the hardware by one character time: a byte waiting in the
// receive register raises rx-complete, and an enabled tx-ready source fires
// once.
func (b *Board) Tick() {
	if b.UART.ReceivePending() {
		b.CPU.Fire(serialx.SourceReceiveComplete)
	}
	if b.CPU.Enabled(serialx.SourceTransmitReady) {
		b.CPU.Fire(serialx.SourceTransmitReady)
	}
}

// Drain ticks until the tx-ready source is disabled or max ticks have
// elapsed, and returns the number of ticks used.
func (b *Board) Drain(max int) int {
	n := 0
	for n < max && b.CPU.Enabled(serialx.SourceTransmitReady) {
		b.Tick()
		n++
	}
	return n
}

// Run ticks every period until ctx is done.
func (b *Board) Run(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			b.Tick()
		case <-ctx.Done():
			return
		}
	}
}
