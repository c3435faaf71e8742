// serialx/serial.go

// Package serialx provides a ring-buffered, interrupt-driven UART driver.
//
// The driver owns one ring buffer per direction and is split across two
// execution contexts. Foreground code calls WriteByte/ReadByte (and the bulk
// and blocking helpers built on them). The interrupt dispatch layer calls
// OnReceiveComplete and OnTransmitReady. Foreground accesses to a ring that a
// handler also mutates are wrapped in the CriticalSection guard; handlers run
// with their own source masked by the hardware and never take the guard.
//
// Hardware is reached only through capabilities: Transport (data register,
// ready flags, line configuration) and InterruptController (source enables).
// The rp2 build supplies both for the PL011; package sim supplies host models.
//
// Transmit path state machine:
//
//	Idle      ring empty, tx-ready source disabled
//	Priming   WriteByte finds Idle: the byte is queued, written to the data
//	          register directly and the tx-ready source is enabled
//	Draining  each OnTransmitReady retires the in-flight byte and writes the next
//	Idle      OnTransmitReady finds nothing left and disables the source
//
// The in-flight byte keeps its ring slot until OnTransmitReady retires it, so a
// ring of capacity N holds the byte on the wire plus N-1 queued bytes.
//
// A ring capacity of 0 selects direct mode for that direction: writes busy-wait
// on TransmitReady and load the data register synchronously, reads poll
// ReceivePending and read the data register without involving interrupts.
package serialx

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jangala-dev/tinygo-serialx/logger"
)

// Serial is a buffered UART driver bound to one peripheral.
//
// Invariants:
//   - the tx-ready source is enabled iff txBusy, and txBusy iff the tx ring is
//     non-empty (its oldest byte is the one in flight);
//   - the rx-complete source stays enabled from New until Close when the rx
//     ring has capacity.
type Serial struct {
	cfg *Config
	tr  Transport
	ic  InterruptController
	cs  CriticalSection
	log logger.Logger

	rx *RingBuffer // filled by OnReceiveComplete
	tx *RingBuffer // drained by OnTransmitReady

	// txBusy is written by foreground code only with the guard held, and by
	// OnTransmitReady.
	txBusy bool
	closed atomic.Bool

	notify   chan struct{} // coalesced RX readiness notifications
	txNotify chan struct{} // coalesced TX space/progress notifications
	done     chan struct{} // closed by Close

	metrics   metrics
	seenDrops atomic.Uint32 // drops already logged
}

// New applies cfg's line configuration to tr and returns a driver with empty
// rings. The rx-complete source is enabled (unless the RX path is in direct
// mode); the tx-ready source is left disabled until the first byte is queued.
// With RX capacity 0 the rx-complete source stays disabled for the driver's
// lifetime and reads poll the transport instead, so bytes are never consumed
// by a handler with nowhere to put them.
//
// The caller still has to route the UART interrupts to OnReceiveComplete and
// OnTransmitReady and open the global gate with ic.EnableGlobal.
//
// A configuration the transport cannot apply is fatal: no driver is returned.
func New(tr Transport, ic InterruptController, cs CriticalSection, cfg *Config) (*Serial, error) {
	if tr == nil || ic == nil || cs == nil {
		return nil, errors.New("serialx: transport, interrupt controller and critical section are required")
	}
	if cfg == nil {
		var err error
		if cfg, err = NewConfig(); err != nil {
			return nil, err
		}
	}

	line := cfg.Line()
	if err := line.Validate(); err != nil {
		return nil, err
	}
	if err := tr.ApplyLineConfig(line, cfg.ClockHz()); err != nil {
		cfg.logger.Error("serial line configuration rejected", "uart", cfg.name, "line", line.String(), "error", err)
		return nil, fmt.Errorf("serialx: apply %s on %s: %w", line, cfg.name, err)
	}

	s := &Serial{
		cfg:      cfg,
		tr:       tr,
		ic:       ic,
		cs:       cs,
		log:      cfg.logger,
		rx:       NewRingBuffer(cfg.rxSize),
		tx:       NewRingBuffer(cfg.txSize),
		notify:   make(chan struct{}, 1),
		txNotify: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if s.rx.Size() > 0 {
		ic.Enable(SourceReceiveComplete)
	}

	// The transmit path starts Idle: writable.
	signal(s.txNotify)

	s.log.Info("serial configured",
		"uart", cfg.name,
		"line", line.String(),
		"clock_hz", cfg.clock,
		"rx_size", cfg.rxSize,
		"tx_size", cfg.txSize,
	)

	return s, nil
}

// Config returns the configuration the driver was built with.
func (s *Serial) Config() *Config { return s.cfg }

// WriteByte queues c for transmission without blocking.
//
// With a tx ring it returns ErrBufferFull when no slot is free; the byte is
// not accepted and the caller decides whether to retry. If the transmit path
// was Idle the byte is primed: written to the data register at once and the
// tx-ready source enabled so the rest of the ring drains from OnTransmitReady.
//
// In direct mode (tx capacity 0) it busy-waits until the transport is ready
// and performs exactly one hardware transfer.
func (s *Serial) WriteByte(c byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.tx.Size() == 0 {
		s.writeDirect(c)
		return nil
	}

	state := s.cs.DisableInterrupts()
	defer s.cs.RestoreInterrupts(state)

	if !s.tx.Put(c) {
		s.metrics.txFull.Add(1)
		return ErrBufferFull
	}
	if !s.txBusy {
		s.prime(c)
	}
	return nil
}

// prime starts a transmission from Idle. The guard must be held and c must be
// the only byte in the tx ring.
func (s *Serial) prime(c byte) {
	s.txBusy = true
	s.tr.WriteData(c)
	s.metrics.txBytes.Add(1)
	s.metrics.txPrimes.Add(1)

	s.ic.Enable(SourceTransmitReady)
	s.metrics.txEnables.Add(1)
}

func (s *Serial) writeDirect(c byte) {
	for !s.tr.TransmitReady() {
	}
	s.tr.WriteData(c)
	s.metrics.txBytes.Add(1)
}

// ReadByte returns the oldest received byte, or ErrBufferEmpty when none is
// available. It never blocks. Once the driver is closed and drained it
// returns ErrClosed.
func (s *Serial) ReadByte() (byte, error) {
	s.checkDrops()

	var (
		b  byte
		ok bool
	)
	if s.rx.Size() == 0 {
		b, ok = s.readDirect()
	} else {
		b, ok = s.rxGet()
	}
	if ok {
		return b, nil
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return 0, ErrBufferEmpty
}

func (s *Serial) rxGet() (byte, bool) {
	state := s.cs.DisableInterrupts()
	defer s.cs.RestoreInterrupts(state)
	return s.rx.Get()
}

func (s *Serial) readDirect() (byte, bool) {
	if s.closed.Load() || !s.tr.ReceivePending() {
		return 0, false
	}
	s.metrics.rxBytes.Add(1)
	return s.tr.ReadData(), true
}

// checkDrops logs receive overflows observed since the previous call. It runs
// in foreground context only; handlers never log. Concurrent readers log each
// batch of drops once.
func (s *Serial) checkDrops() {
	d := s.metrics.rxDropped.Load()
	seen := s.seenDrops.Load()
	if d == seen || !s.seenDrops.CompareAndSwap(seen, d) {
		return
	}
	s.log.Warn("serial rx overflow", "uart", s.cfg.name, "dropped", d-seen, "total", d)
}

// OnReceiveComplete is the rx-complete interrupt entry point. It reads the
// data register exactly once (clearing the pending condition) and queues the
// byte. When the rx ring is full the byte is dropped and the overflow
// indicator set; it never blocks or retries.
func (s *Serial) OnReceiveComplete() {
	b := s.tr.ReadData()
	s.metrics.rxIRQs.Add(1)

	if !s.rx.Put(b) {
		s.metrics.rxDropped.Add(1)
		s.metrics.overflow.Store(true)
		return
	}
	s.metrics.rxBytes.Add(1)
	signal(s.notify)
}

// OnTransmitReady is the tx-ready interrupt entry point. It retires the
// in-flight byte and loads the next queued one. When nothing is left it
// disables the tx-ready source in the same invocation and returns the
// transmit path to Idle.
func (s *Serial) OnTransmitReady() {
	s.metrics.txIRQs.Add(1)
	if !s.txBusy {
		return
	}

	s.tx.Get()
	if b, ok := s.tx.Peek(); ok {
		s.tr.WriteData(b)
		s.metrics.txBytes.Add(1)
	} else {
		s.ic.Disable(SourceTransmitReady)
		s.metrics.txDisables.Add(1)
		s.txBusy = false
	}
	signal(s.txNotify)
}

// Buffered returns the number of received bytes waiting in the rx ring.
func (s *Serial) Buffered() int {
	state := s.cs.DisableInterrupts()
	defer s.cs.RestoreInterrupts(state)
	return s.rx.Used()
}

// TxFree returns the number of free slots in the tx ring.
func (s *Serial) TxFree() int {
	state := s.cs.DisableInterrupts()
	defer s.cs.RestoreInterrupts(state)
	return s.tx.Free()
}

// TxBusy reports whether the transmit path is Priming or Draining.
func (s *Serial) TxBusy() bool {
	state := s.cs.DisableInterrupts()
	defer s.cs.RestoreInterrupts(state)
	return s.txBusy
}

// Close masks both interrupt sources and wakes blocked callers. Bytes still
// queued for transmission are discarded; call Flush first to wait for them.
// Bytes already received can still be read.
func (s *Serial) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	state := s.cs.DisableInterrupts()
	if s.rx.Size() > 0 {
		s.ic.Disable(SourceReceiveComplete)
	}
	discarded := 0
	if s.txBusy {
		s.ic.Disable(SourceTransmitReady)
		s.metrics.txDisables.Add(1)
		s.txBusy = false
		discarded = s.tx.Used() - 1
		s.tx.Clear()
	}
	s.cs.RestoreInterrupts(state)

	close(s.done)
	s.log.Debug("serial closed", "uart", s.cfg.name, "tx_discarded", discarded)
	return nil
}

// signal performs a coalescing, non-blocking send.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
