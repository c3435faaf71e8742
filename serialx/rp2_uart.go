// serialx/rp2_uart.go

//go:build rp2040 || rp2350

package serialx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"sync/atomic"
)

// PL011 adapts one RP2 PL011 UART to the Transport and InterruptController
// capabilities. The FIFOs are disabled so that every interrupt corresponds to
// a single character:
//   - RXIM asserts while the receive holding register is full;
//   - TXIM asserts while the transmit holding register is empty.
type PL011 struct {
	Bus       *rp.UART0_Type
	Interrupt interrupt.Interrupt

	serial *Serial

	// Per-byte receive error flags seen by ReadData.
	errOverrun atomic.Uint32
	errBreak   atomic.Uint32
	errParity  atomic.Uint32
	errFraming atomic.Uint32
}

var (
	_ Transport           = (*PL011)(nil)
	_ InterruptController = (*PL011)(nil)
)

// Attach routes this peripheral's interrupt to s. It must be called before
// EnableGlobal and never while the IRQ line is enabled for another driver.
func (p *PL011) Attach(s *Serial) { p.serial = s }

// ApplyLineConfig resets the PL011, programs divisors and the frame format
// with FIFOs off, clears pending interrupts and enables RX and TX with every
// interrupt source masked.
func (p *PL011) ApplyLineConfig(line LineConfig, clockHz uint32) error {
	ibrd, fbrd, err := PL011Divisors(clockHz, line.BaudRate)
	if err != nil {
		return err
	}

	resetPL011(p)

	// 1) Disable UART while configuring.
	p.Bus.UARTCR.ClearBits(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	// 2) Baud divisors. PL011 latches them on the following LCR_H write.
	p.Bus.UARTIBRD.Set(ibrd)
	p.Bus.UARTFBRD.Set(fbrd)

	// 3) Frame format: 8 data bits, stop bits, parity, FEN clear.
	var pen, eps uint32
	if line.Parity != ParityNone {
		pen = rp.UART0_UARTLCR_H_PEN
		if line.Parity == ParityEven {
			eps = rp.UART0_UARTLCR_H_EPS
		}
	}
	p.Bus.UARTLCR_H.Set(uint32(DataBits-5)<<rp.UART0_UARTLCR_H_WLEN_Pos |
		uint32(line.StopBits-1)<<rp.UART0_UARTLCR_H_STP2_Pos |
		pen | eps)

	// 4) Clear pending IRQs, purge the holding register and sticky errors.
	p.Bus.UARTICR.Set(0x7FF)
	for !p.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		_ = p.Bus.UARTDR.Get()
	}
	p.Bus.UARTRSR.Set(0)

	// 5) Enable with all sources masked; the driver unmasks what it needs.
	p.Bus.UARTIMSC.Set(0)
	p.Bus.UARTCR.Set(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)
	return nil
}

func (p *PL011) WriteData(b byte) { p.Bus.UARTDR.Set(uint32(b)) }

// ReadData returns the received byte. Per-byte error flags are counted; the
// byte is delivered regardless and reading DR clears the flags.
func (p *PL011) ReadData() byte {
	r := p.Bus.UARTDR.Get()
	if r&rp.UART0_UARTDR_OE != 0 {
		p.errOverrun.Add(1)
	}
	if r&rp.UART0_UARTDR_BE != 0 {
		p.errBreak.Add(1)
	}
	if r&rp.UART0_UARTDR_PE != 0 {
		p.errParity.Add(1)
	}
	if r&rp.UART0_UARTDR_FE != 0 {
		p.errFraming.Add(1)
	}
	return byte(r & 0xFF)
}

func (p *PL011) TransmitReady() bool { return !p.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) }

func (p *PL011) ReceivePending() bool { return !p.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) }

func (p *PL011) Enable(src Source) {
	switch src {
	case SourceReceiveComplete:
		p.Bus.UARTIMSC.SetBits(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)
	case SourceTransmitReady:
		p.Bus.UARTIMSC.SetBits(rp.UART0_UARTIMSC_TXIM)
	}
}

func (p *PL011) Disable(src Source) {
	switch src {
	case SourceReceiveComplete:
		p.Bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)
	case SourceTransmitReady:
		p.Bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_TXIM)
	}
}

// EnableGlobal enables this UART's IRQ line in the NVIC. TinyGo runs with
// PRIMASK clear, so this is the last gate between the peripheral and the
// handler.
func (p *PL011) EnableGlobal() {
	p.Interrupt.SetPriority(0x80)
	p.Interrupt.Enable()
}

// LineErrors holds per-byte receive error counts.
type LineErrors struct {
	Overrun uint32 // OE
	Break   uint32 // BE
	Parity  uint32 // PE
	Framing uint32 // FE
}

// LineErrors returns the receive error counts seen so far.
func (p *PL011) LineErrors() LineErrors {
	return LineErrors{
		Overrun: p.errOverrun.Load(),
		Break:   p.errBreak.Load(),
		Parity:  p.errParity.Load(),
		Framing: p.errFraming.Load(),
	}
}

// Regs is a snapshot of the PL011 registers useful when debugging.
type Regs struct {
	FR   uint32 // Flag register
	CR   uint32 // Control
	LCRH uint32 // Line control
	IMSC uint32 // Interrupt mask set/clear
	MIS  uint32 // Masked interrupt status
	RIS  uint32 // Raw interrupt status
	IBRD uint32
	FBRD uint32
}

func (p *PL011) Regs() Regs {
	return Regs{
		FR:   p.Bus.UARTFR.Get(),
		CR:   p.Bus.UARTCR.Get(),
		LCRH: p.Bus.UARTLCR_H.Get(),
		IMSC: p.Bus.UARTIMSC.Get(),
		MIS:  p.Bus.UARTMIS.Get(),
		RIS:  p.Bus.UARTRIS.Get(),
		IBRD: p.Bus.UARTIBRD.Get(),
		FBRD: p.Bus.UARTFBRD.Get(),
	}
}

func (p *PL011) name() string {
	if p.Bus == rp.UART1 {
		return "uart1"
	}
	return "uart0"
}

func (p *PL011) configurePins(pins Pins) {
	if pins.TX != machine.NoPin {
		pins.TX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if pins.RX != machine.NoPin {
		pins.RX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
}

// resetPL011 asserts and releases the peripheral reset for the selected PL011.
func resetPL011(p *PL011) {
	var resetVal uint32
	switch p.Bus {
	case rp.UART0:
		resetVal = rp.RESETS_RESET_UART0
	case rp.UART1:
		resetVal = rp.RESETS_RESET_UART1
	}

	rp.RESETS.RESET.SetBits(resetVal)
	rp.RESETS.RESET.ClearBits(resetVal)
	for !rp.RESETS.RESET_DONE.HasBits(resetVal) {
	}
}

// handleInterrupt dispatches the PL011's single IRQ line to the driver's two
// entry points. With FIFOs off each source stands for one character.
func (p *PL011) handleInterrupt(interrupt.Interrupt) {
	s := p.serial
	if s == nil {
		p.Bus.UARTIMSC.Set(0)
		return
	}
	mis := p.Bus.UARTMIS.Get()

	if mis&(rp.UART0_UARTMIS_RXMIS|rp.UART0_UARTMIS_RTMIS) != 0 {
		for p.ReceivePending() {
			s.OnReceiveComplete()
		}
		p.Bus.UARTICR.Set(rp.UART0_UARTICR_RXIC | rp.UART0_UARTICR_RTIC)
		p.Bus.UARTRSR.Set(0)
	}

	if mis&rp.UART0_UARTMIS_TXMIS != 0 {
		// Clear first: the next DR write re-arms the level once the
		// holding register empties again.
		p.Bus.UARTICR.Set(rp.UART0_UARTICR_TXIC)
		s.OnTransmitReady()
	}
}
