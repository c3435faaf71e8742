// trace/trace.go

// Package trace prints levelled, printf-style diagnostics to a byte sink,
// typically a serialx.Serial.
package trace

import (
	"fmt"
	"io"
	"sync"
)

// Level orders trace messages by severity.
type Level uint8

const (
	Debug Level = iota
	Info
	Warning
	Error
	// Off suppresses every message when used as the threshold.
	Off
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warning:
		return "W"
	case Error:
		return "E"
	case Off:
		return "off"
	}
	return "?"
}

// Trace formats messages at or above its threshold and writes each one with
// a single Write call.
type Trace struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	buf   []byte
	err   error
}

// New returns a Trace writing to out and dropping messages below level.
func New(out io.Writer, level Level) *Trace {
	return &Trace{out: out, level: level, buf: make([]byte, 0, 64)}
}

// Printf writes a formatted message if level is enabled.
func (t *Trace) Printf(level Level, format string, args ...any) {
	if level >= Off {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if level < t.level {
		return
	}
	t.buf = fmt.Appendf(t.buf[:0], format, args...)
	if _, err := t.out.Write(t.buf); err != nil && t.err == nil {
		t.err = err
	}
}

// Println writes the default formatting of args followed by "\r\n".
func (t *Trace) Println(level Level, args ...any) {
	t.Printf(level, "%s\r\n", fmt.Sprint(args...))
}

// Enabled reports whether messages at level are written.
func (t *Trace) Enabled(level Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return level < Off && level >= t.level
}

// Level returns the current threshold.
func (t *Trace) Level() Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// SetLevel changes the threshold.
func (t *Trace) SetLevel(level Level) {
	t.mu.Lock()
	t.level = level
	t.mu.Unlock()
}

// Err returns the first write error seen, if any.
func (t *Trace) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
