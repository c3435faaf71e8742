// serialx/stats.go

package serialx

import "sync/atomic"

// metrics are updated from both handler and foreground context.
// 32-bit atomics are cheap on every supported core, Cortex-M0+ included.
type metrics struct {
	rxIRQs    atomic.Uint32
	rxBytes   atomic.Uint32
	rxDropped atomic.Uint32
	overflow  atomic.Bool

	txIRQs     atomic.Uint32
	txBytes    atomic.Uint32
	txFull     atomic.Uint32
	txPrimes   atomic.Uint32
	txEnables  atomic.Uint32
	txDisables atomic.Uint32
}

func (m *metrics) reset() {
	m.rxIRQs.Store(0)
	m.rxBytes.Store(0)
	m.rxDropped.Store(0)
	m.overflow.Store(false)
	m.txIRQs.Store(0)
	m.txBytes.Store(0)
	m.txFull.Store(0)
	m.txPrimes.Store(0)
	m.txEnables.Store(0)
	m.txDisables.Store(0)
}

// Stats holds counters since construction or the last ResetStats.
type Stats struct {
	// RX
	RxInterrupts uint32 // OnReceiveComplete invocations
	RxBytes      uint32 // bytes accepted into the RX path
	RxDropped    uint32 // bytes dropped because the RX ring was full

	// TX
	TxInterrupts uint32 // OnTransmitReady invocations
	TxBytes      uint32 // bytes handed to the transmit data register
	TxFull       uint32 // WriteByte calls rejected with ErrBufferFull
	TxPrimes     uint32 // Idle -> Priming transitions
	TxEnables    uint32 // tx-ready source enables
	TxDisables   uint32 // tx-ready source disables
}

// Stats returns a snapshot of the driver counters.
func (s *Serial) Stats() Stats {
	m := &s.metrics
	return Stats{
		RxInterrupts: m.rxIRQs.Load(),
		RxBytes:      m.rxBytes.Load(),
		RxDropped:    m.rxDropped.Load(),

		TxInterrupts: m.txIRQs.Load(),
		TxBytes:      m.txBytes.Load(),
		TxFull:       m.txFull.Load(),
		TxPrimes:     m.txPrimes.Load(),
		TxEnables:    m.txEnables.Load(),
		TxDisables:   m.txDisables.Load(),
	}
}

// Overflowed reports whether a received byte has been dropped since the last
// ClearOverflow.
func (s *Serial) Overflowed() bool { return s.metrics.overflow.Load() }

// ClearOverflow resets the sticky overflow indicator. Counters are kept.
func (s *Serial) ClearOverflow() { s.metrics.overflow.Store(false) }

// ResetStats zeroes every counter and the overflow indicator.
func (s *Serial) ResetStats() {
	s.metrics.reset()
	s.seenDrops.Store(0)
}
