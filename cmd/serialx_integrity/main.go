// cmd/serialx_integrity/main.go

//go:build rp2040 || rp2350

// Command serialx_integrity runs a full-duplex cross-UART integrity test on
// two drivers at once. Each side streams its own pattern while checking
// every byte it receives from the other.
//
// Wiring (Pico):
//
//	UART0 TX GP0 -> UART1 RX GP5
//	UART1 TX GP4 -> UART0 RX GP1
package main

import (
	"context"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

const (
	baud           = serialx.B230400
	totalBytes     = 64 * 1024
	fullDuplex     = true
	timeoutPerTest = 10 * time.Second
	warmupDelay    = 2 * time.Second

	usePreamble  = true
	preambleByte = 0x55
	guardDelay   = 2 * time.Millisecond

	sendChunk      = 192
	recvChunk      = 256
	contextRadius  = 16
	extraFollowing = 128
)

func patternA(i int) byte { return byte((i*31 + 0x55) & 0xFF) }
func patternB(i int) byte { return byte((i*17 + 0xA6) & 0xFF) }

func main() {
	time.Sleep(warmupDelay)
	println("serialx integrity starting")

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machine.GP1.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	machine.GP5.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	u0, err := serialx.Open(serialx.UART0, serialx.Pins{TX: machine.GP0, RX: machine.GP1},
		serialx.WithName("UART0"),
		serialx.WithBaudRate(baud),
		serialx.WithRxBufferSize(1024),
		serialx.WithTxBufferSize(256),
	)
	if err != nil {
		halt("UART0 open failed: " + err.Error())
	}
	u1, err := serialx.Open(serialx.UART1, serialx.Pins{TX: machine.GP4, RX: machine.GP5},
		serialx.WithName("UART1"),
		serialx.WithBaudRate(baud),
		serialx.WithRxBufferSize(1024),
		serialx.WithTxBufferSize(256),
	)
	if err != nil {
		halt("UART1 open failed: " + err.Error())
	}
	println("line", u0.Config().Line().String(), "bytes per direction", totalBytes)

	pass, fail := 0, 0
	report := func(name, msg string) {
		println("")
		println("[Test]", name)
		if msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	if fullDuplex {
		report("full-duplex integrity", runFullDuplex(totalBytes, u0, u1))
	} else {
		report("UART0 -> UART1 integrity", runOneWay(u0, u1, patternA, totalBytes))
		report("UART1 -> UART0 integrity", runOneWay(u1, u0, patternB, totalBytes))
	}
	report("line errors", lineErrors())
	report("no rx overflow", overflow(u0, u1))

	println("")
	println("Summary")
	println("  passed =", pass)
	println("  failed =", fail)
	if fail == 0 {
		blink(3, 120*time.Millisecond)
		return
	}
	for {
		blink(1, 600*time.Millisecond)
		time.Sleep(800 * time.Millisecond)
	}
}

func runOneWay(tx, rx *serialx.Serial, gen func(int) byte, n int) string {
	drain(tx)
	drain(rx)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutPerTest)
	defer cancel()

	errc := make(chan string, 1)
	go func() { errc <- recvAndCheck(ctx, rx, gen, n, skip()) }()

	sendPreamble(ctx, tx)
	go func() { _ = sendPattern(ctx, tx, gen, n) }()

	return <-errc
}

func runFullDuplex(n int, u0, u1 *serialx.Serial) string {
	drain(u0)
	drain(u1)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutPerTest)
	defer cancel()

	// Receivers first so neither side's preamble is missed.
	errc := make(chan string, 2)
	go func() { errc <- recvAndCheck(ctx, u1, patternA, n, skip()) }()
	go func() { errc <- recvAndCheck(ctx, u0, patternB, n, skip()) }()

	sendPreamble(ctx, u0)
	sendPreamble(ctx, u1)
	go func() { _ = sendPattern(ctx, u0, patternA, n) }()
	go func() { _ = sendPattern(ctx, u1, patternB, n) }()

	e1, e2 := <-errc, <-errc
	if e1 != "" {
		return e1
	}
	return e2
}

func skip() int {
	if usePreamble {
		return 1
	}
	return 0
}

func drain(s *serialx.Serial) {
	var tmp [64]byte
	for s.TryRead(tmp[:]) > 0 {
	}
}

func sendPreamble(ctx context.Context, s *serialx.Serial) {
	if usePreamble {
		_, _ = s.WriteContext(ctx, []byte{preambleByte})
	}
	if guardDelay > 0 {
		time.Sleep(guardDelay)
	}
}

func sendPattern(ctx context.Context, s *serialx.Serial, gen func(int) byte, n int) error {
	var buf [sendChunk]byte
	for i := 0; i < n; {
		k := min(sendChunk, n-i)
		for j := 0; j < k; j++ {
			buf[j] = gen(i + j)
		}
		if _, err := s.WriteContext(ctx, buf[:k]); err != nil {
			return err
		}
		i += k
	}
	return s.Flush(ctx)
}

// recvAndCheck discards skip bytes, then reads n bytes and compares each one
// with gen. On the first mismatch it dumps the surrounding bytes and what
// arrived after it.
func recvAndCheck(ctx context.Context, s *serialx.Serial, gen func(int) byte, n, skip int) string {
	if skip > 0 {
		tmp := make([]byte, skip)
		if _, err := s.ReadFullContext(ctx, tmp); err != nil {
			return "timeout (waiting to skip preamble)"
		}
	}

	var buf [recvChunk]byte
	for received := 0; received < n; {
		k := min(len(buf), n-received)
		m, err := s.ReadFullContext(ctx, buf[:k])
		for i := 0; i < m; i++ {
			if buf[i] == gen(received+i) {
				continue
			}
			off := received + i
			println("First mismatch at offset", off)
			printContext(gen, off, buf[:m], i)
			printFollowing(off, following(ctx, s, buf[i+1:m], n-off-1))
			return "integrity mismatch"
		}
		if err != nil {
			println("  received", received+m, "of", n)
			return "timeout"
		}
		received += m
	}
	return ""
}

// following collects up to extraFollowing bytes after a mismatch, starting
// with what is left of the current chunk.
func following(ctx context.Context, s *serialx.Serial, rest []byte, remaining int) []byte {
	limit := min(extraFollowing, remaining)
	out := make([]byte, 0, extraFollowing)
	out = append(out, rest[:min(len(rest), limit)]...)
	if len(out) < limit {
		tail := make([]byte, limit-len(out))
		m, _ := s.ReadFullContext(ctx, tail)
		out = append(out, tail[:m]...)
	}
	return out
}

func lineErrors() string {
	e0, e1 := serialx.UART0.LineErrors(), serialx.UART1.LineErrors()
	if e0.Framing != 0 || e0.Parity != 0 || e1.Framing != 0 || e1.Parity != 0 {
		println("  UART0 framing", e0.Framing, "parity", e0.Parity)
		println("  UART1 framing", e1.Framing, "parity", e1.Parity)
		return "framing/parity errors seen"
	}
	return ""
}

func overflow(us ...*serialx.Serial) string {
	for _, u := range us {
		if u.Overflowed() {
			println(" ", u.Config().Name(), "dropped", u.Stats().RxDropped)
			return "rx ring overflowed"
		}
	}
	return ""
}

func printContext(gen func(int) byte, off int, chunk []byte, rel int) {
	start := max(off-contextRadius, 0)
	end := off + contextRadius + 1
	base := off - rel

	exp := make([]byte, end-start)
	act := make([]byte, end-start)
	for i := range exp {
		exp[i] = gen(start + i)
		if idx := start + i - base; idx >= 0 && idx < len(chunk) {
			act[i] = chunk[idx]
		}
	}

	println("Context (hex): bytes", start, "to", end-1)
	print(" exp: ")
	printHex(exp, off-start)
	print(" act: ")
	printHex(act, off-start)
}

func printHex(b []byte, pivot int) {
	for i, v := range b {
		if i == pivot {
			print("[", hex(v), "]")
		} else {
			print(" ", hex(v))
		}
	}
	println("")
}

func printFollowing(off int, b []byte) {
	println("Following bytes received after mismatch (next", len(b), "bytes):")
	if len(b) == 0 {
		println(" <none>")
		return
	}
	for i := 0; i < len(b); i += 16 {
		end := min(i+16, len(b))
		print("  +", off+1+i, ":")
		for _, v := range b[i:end] {
			print(" ", hex(v))
		}
		println("")
	}
}

func hex(v byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>4], digits[v&0xF]})
}

func blink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func halt(msg string) {
	println(msg)
	for {
		blink(1, 500*time.Millisecond)
	}
}
