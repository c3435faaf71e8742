// serialx/rp2.go

//go:build rp2040 || rp2350

package serialx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

// PL011 peripherals on the RP2040/RP2350. Each may be bound to one Serial.
var (
	UART0  = &_UART0
	_UART0 = PL011{Bus: rp.UART0}

	UART1  = &_UART1
	_UART1 = PL011{Bus: rp.UART1}
)

func init() {
	UART0.Interrupt = interrupt.New(rp.IRQ_UART0_IRQ, _UART0.handleInterrupt)
	UART1.Interrupt = interrupt.New(rp.IRQ_UART1_IRQ, _UART1.handleInterrupt)
}

// Critical is the CriticalSection for TinyGo targets, backed by
// runtime/interrupt Disable/Restore (PRIMASK on Cortex-M).
type Critical struct{}

var _ CriticalSection = Critical{}

func (Critical) DisableInterrupts() InterruptState { return InterruptState(interrupt.Disable()) }

func (Critical) RestoreInterrupts(state InterruptState) { interrupt.Restore(interrupt.State(state)) }

// Pins selects the pads muxed to a PL011. NoPin leaves a direction unrouted.
type Pins struct {
	TX machine.Pin
	RX machine.Pin
}

// DefaultPins returns the board's default UART pins.
func DefaultPins() Pins {
	return Pins{TX: machine.UART_TX_PIN, RX: machine.UART_RX_PIN}
}

// Open muxes pins, builds a Serial on p clocked from the CPU frequency, routes
// p's interrupt to it and enables the IRQ line. Options override defaults,
// including the clock.
func Open(p *PL011, pins Pins, opts ...Option) (*Serial, error) {
	base := []Option{WithClockHz(machine.CPUFrequency()), WithName(p.name())}
	cfg, err := NewConfig(append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	p.configurePins(pins)

	s, err := New(p, p, Critical{}, cfg)
	if err != nil {
		return nil, err
	}
	p.Attach(s)
	p.EnableGlobal()
	return s, nil
}
