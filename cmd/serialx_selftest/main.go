//go:build rp2040 || rp2350

// Command serialx_selftest exercises the driver on hardware.
// Wire UART1 TX to RX (Pico: GP8 to GP9) before flashing.
package main

import (
	"context"
	"crypto/sha1"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

var (
	pins       = serialx.Pins{TX: machine.GP8, RX: machine.GP9}
	baud       = serialx.B230400
	lineEnding = "\r\n"
)

func drain(s *serialx.Serial) {
	var tmp [64]byte
	for s.TryRead(tmp[:]) > 0 {
	}
}

func recvExact(s *serialx.Serial, n int, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	out := make([]byte, n)
	k, err := s.ReadFullContext(ctx, out)
	return out[:k], err
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	println("serialx self-test starting")
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	s, err := serialx.Open(serialx.UART1, pins,
		serialx.WithBaudRate(baud),
		serialx.WithRxBufferSize(256),
		serialx.WithTxBufferSize(128),
	)
	if err != nil {
		println("Open failed:", err.Error())
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	drain(s)

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	run("notify: initial Writable after Open", func() string {
		select {
		case <-s.Writable():
		case <-time.After(750 * time.Millisecond):
			return "no initial Writable"
		}
		if err := s.WriteByte('X'); err != nil {
			return "could not enqueue"
		}
		got, err := recvExact(s, 1, 750*time.Millisecond)
		if err != nil || got[0] != 'X' {
			return "echo failed"
		}
		return ""
	})

	run("prime: first byte goes straight to the data register", func() string {
		drain(s)
		s.ResetStats()
		if err := s.WriteByte('P'); err != nil {
			return "write failed"
		}
		st := s.Stats()
		if st.TxPrimes != 1 || st.TxEnables != 1 || st.TxBytes != 1 {
			return "expected exactly one prime"
		}
		if err := s.Flush(context.Background()); err != nil {
			return "flush failed"
		}
		if s.TxBusy() || s.Stats().TxDisables != 1 {
			return "tx source still enabled"
		}
		_, _ = recvExact(s, 1, 100*time.Millisecond)
		return ""
	})

	run("sanity: short loopback (Write + ReadFullContext)", func() string {
		drain(s)
		msg := []byte("hello, serialx" + lineEnding)
		if _, err := s.Write(msg); err != nil {
			return "write failed"
		}
		got, err := recvExact(s, len(msg), time.Second)
		if err != nil {
			return "timeout"
		}
		if string(got) != string(msg) {
			return "mismatch"
		}
		return ""
	})

	run("full: TryWrite stops at capacity", func() string {
		drain(s)
		src := make([]byte, 4*s.Config().TxBufferSize())
		n := s.TryWrite(src)
		if n == 0 || n >= len(src) {
			return "unexpected accept count"
		}
		if s.Stats().TxFull == 0 {
			return "full rejection not counted"
		}
		_ = s.Flush(context.Background())
		_, _ = recvExact(s, n, time.Second)
		return ""
	})

	run("timeout: no data within 200ms", func() string {
		drain(s)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if _, err := s.ReadByteContext(ctx); err != context.DeadlineExceeded {
			return "unexpected data"
		}
		return ""
	})

	run("binary: 4 KiB integrity (SHA-1)", func() string {
		drain(s)
		n := 4 * 1024
		src := make([]byte, n)
		var x uint32 = 0x12345678
		for i := range src {
			x = 1664525*x + 1013904223
			src[i] = byte(x >> 24)
		}
		want := sha1.Sum(src)

		go func() { _, _ = s.Write(src) }()
		got, err := recvExact(s, n, 3*time.Second)
		if err != nil || len(got) != n {
			return "timeout/short read"
		}
		if sha1.Sum(got) != want {
			return "hash mismatch"
		}
		return ""
	})

	run("overflow: unread burst drops and flags", func() string {
		drain(s)
		s.ResetStats()
		n := 2 * s.Config().RxBufferSize()
		src := make([]byte, n)
		if _, err := s.Write(src); err != nil {
			return "write failed"
		}
		_ = s.Flush(context.Background())
		time.Sleep(20 * time.Millisecond)
		if !s.Overflowed() || s.Stats().RxDropped == 0 {
			return "overflow not reported"
		}
		drain(s)
		s.ClearOverflow()
		return ""
	})

	run("throughput: 32 KiB", func() string {
		drain(s)
		n := 32 * 1024
		src := make([]byte, n)
		for i := 0; i < n; i++ {
			src[i] = byte(i * 31)
		}

		start := time.Now()
		go func() { _, _ = s.Write(src) }()
		if _, err := recvExact(s, n, 5*time.Second); err != nil {
			return "timeout"
		}

		ms := int(time.Since(start) / time.Millisecond)
		if ms <= 0 {
			ms = 1
		}
		kbpsX100 := (n*8*100 + ms/2) / ms
		println("  speed =", formatFixed2(kbpsX100), "kbps")
		return ""
	})

	run("line errors: none on a clean loop", func() string {
		if e := serialx.UART1.LineErrors(); e.Framing != 0 || e.Parity != 0 {
			return "framing/parity errors seen"
		}
		return ""
	})

	println("")
	println("All tests completed")
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func formatFixed2(x int) string {
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	frac := x % 100
	s := sign + itoa(x/100) + "."
	if frac < 10 {
		s += "0"
	}
	return s + itoa(frac)
}
