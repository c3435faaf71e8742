//go:build rp2040 || rp2350

// Command serialx_probe loops UART1 back on itself (Pico: GP8 to GP9) and
// prints driver counters and PL011 registers after each phase.
package main

import (
	"context"
	"crypto/sha1"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

const baud = serialx.B115200

func printStats(s *serialx.Serial, label string) {
	st := s.Stats()
	e := serialx.UART1.LineErrors()
	r := serialx.UART1.Regs()
	println("==", label)
	println("RX:     irqs=", st.RxInterrupts, " bytes=", st.RxBytes, " dropped=", st.RxDropped, " overflow=", s.Overflowed())
	println("TX:     irqs=", st.TxInterrupts, " bytes=", st.TxBytes, " full=", st.TxFull, " primes=", st.TxPrimes,
		" enables=", st.TxEnables, " disables=", st.TxDisables)
	println("Errors: OE=", e.Overrun, " BE=", e.Break, " PE=", e.Parity, " FE=", e.Framing)
	println("Regs:   FR=0x", r.FR, " CR=0x", r.CR, " LCRH=0x", r.LCRH,
		" IMSC=0x", r.IMSC, " MIS=0x", r.MIS, " RIS=0x", r.RIS,
		" IBRD=", r.IBRD, " FBRD=", r.FBRD)
}

func drain(s *serialx.Serial) {
	for s.Buffered() > 0 {
		_, _ = s.ReadByte()
	}
}

func recvExact(s *serialx.Serial, n int, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	out := make([]byte, n)
	k, err := s.ReadFullContext(ctx, out)
	return out[:k], err
}

func main() {
	delay := 10
	for i := 0; i < delay; i++ {
		println("probe starting in ", delay-i, " seconds")
		time.Sleep(time.Second)
	}
	println("serialx probe (diagnostic)")

	s, err := serialx.Open(serialx.UART1, serialx.Pins{TX: machine.GP8, RX: machine.GP9},
		serialx.WithBaudRate(baud),
		serialx.WithRxBufferSize(512),
	)
	if err != nil {
		println("fatal:", err.Error())
		for {
			time.Sleep(time.Hour)
		}
	}
	drain(s)
	printStats(s, "after open")

	// Phase 1: 1 KiB integrity
	println("\n[phase] integrity-1k")
	s.ResetStats()
	src := make([]byte, 1024)
	var x uint32 = 0x12345678
	for i := range src {
		x = 1664525*x + 1013904223
		src[i] = byte(x >> 24)
	}
	want := sha1.Sum(src)
	go func() { _, _ = s.Write(src) }()
	got, err := recvExact(s, len(src), 2*time.Second)
	switch {
	case err != nil:
		println(" result: TIMEOUT (received", len(got), "bytes)")
	case sha1.Sum(got) != want:
		println(" result: HASH MISMATCH (received", len(got), "bytes)")
	default:
		println(" result: OK (1 KiB)")
	}
	printStats(s, "after integrity-1k")

	// Phase 2: burst 8 KiB with reads held off to force ring overflow.
	println("\n[phase] burst-8k (reader delayed)")
	s.ResetStats()
	drain(s)
	n := 8 * 1024
	burst := make([]byte, n)
	for i := 0; i < n; i++ {
		burst[i] = byte(i)
	}
	go func() { _, _ = s.Write(burst) }()
	time.Sleep(50 * time.Millisecond)
	got2, _ := recvExact(s, n, 3*time.Second)
	println(" result: received", len(got2), "of", n, "bytes")
	printStats(s, "after burst-8k")
	s.ClearOverflow()

	// Phase 3: notify sanity (two bytes)
	println("\n[phase] notify-2bytes")
	s.ResetStats()
	drain(s)
	go func() {
		_ = s.WriteByte('A')
		time.Sleep(5 * time.Millisecond)
		_ = s.WriteByte('B')
	}()
	select {
	case <-s.Readable():
		got3, _ := recvExact(s, 2, 200*time.Millisecond)
		println(" result: got '", string(got3), "'")
	case <-time.After(300 * time.Millisecond):
		println(" result: no notification within 300ms")
	}
	printStats(s, "after notify-2bytes")

	println("\ndone")
}
