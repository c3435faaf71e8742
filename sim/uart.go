// sim/uart.go

// Package sim models the hardware a serialx.Serial runs on, for host tests
// and the interactive simulator: a UART data-register pair (UART), a
// single-core interrupt controller with a global gate (CPU), and a Board
// wiring both to a driver.
package sim

import (
	"sync"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

// UART implements serialx.Transport. Bytes loaded into the transmit data
// register leave immediately and are recorded in order; bytes arriving on
// the line queue up behind the receive data register.
type UART struct {
	mu sync.Mutex

	line       serialx.LineConfig
	clock      uint32
	ibrd, fbrd uint32
	applied    int
	rejectWith error

	written []byte
	inbound []byte
	reads   int

	stall      int // TransmitReady polls left to answer false
	readyPolls int
}

var _ serialx.Transport = (*UART)(nil)

// NewUART returns an idle UART.
func NewUART() *UART {
	return &UART{}
}

// ApplyLineConfig records line and computes the PL011 divisors for clockHz.
// It fails if the divisors are out of range or a rejection was set with
// RejectConfig.
func (u *UART) ApplyLineConfig(line serialx.LineConfig, clockHz uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.rejectWith != nil {
		return u.rejectWith
	}
	ibrd, fbrd, err := serialx.PL011Divisors(clockHz, line.BaudRate)
	if err != nil {
		return err
	}
	u.line, u.clock = line, clockHz
	u.ibrd, u.fbrd = ibrd, fbrd
	u.applied++
	return nil
}

func (u *UART) WriteData(b byte) {
	u.mu.Lock()
	u.written = append(u.written, b)
	u.mu.Unlock()
}

// ReadData pops the receive data register. It returns 0 when nothing is pending.
func (u *UART) ReadData() byte {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.reads++
	if len(u.inbound) == 0 {
		return 0
	}
	b := u.inbound[0]
	u.inbound = u.inbound[1:]
	return b
}

func (u *UART) TransmitReady() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.readyPolls++
	if u.stall > 0 {
		u.stall--
		return false
	}
	return true
}

func (u *UART) ReceivePending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.inbound) > 0
}

// Inject puts bytes on the receive line. It does not raise an interrupt; see
// Board.Receive.
func (u *UART) Inject(p ...byte) {
	u.mu.Lock()
	u.inbound = append(u.inbound, p...)
	u.mu.Unlock()
}

// Written returns a copy of every byte loaded into the transmit data register.
func (u *UART) Written() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.written...)
}

// Writes returns the number of hardware transmit transfers.
func (u *UART) Writes() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.written)
}

// Reads returns the number of receive data register reads.
func (u *UART) Reads() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.reads
}

// ClearWritten forgets the recorded transmit history.
func (u *UART) ClearWritten() {
	u.mu.Lock()
	u.written = nil
	u.mu.Unlock()
}

// StallTransmit makes the next polls calls to TransmitReady report false.
func (u *UART) StallTransmit(polls int) {
	u.mu.Lock()
	u.stall = polls
	u.mu.Unlock()
}

// ReadyPolls returns how many times TransmitReady was called.
func (u *UART) ReadyPolls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.readyPolls
}

// RejectConfig makes ApplyLineConfig fail with err. A nil err restores normal behaviour.
func (u *UART) RejectConfig(err error) {
	u.mu.Lock()
	u.rejectWith = err
	u.mu.Unlock()
}

// Line returns the last applied line configuration.
func (u *UART) Line() serialx.LineConfig {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.line
}

// Divisors returns the last applied PL011 integer and fractional divisors.
func (u *UART) Divisors() (ibrd, fbrd uint32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ibrd, u.fbrd
}

// Applied returns how many times a line configuration was accepted.
func (u *UART) Applied() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.applied
}
