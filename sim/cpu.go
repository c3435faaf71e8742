// sim/cpu.go

package sim

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

// Handler is an interrupt service routine.
type Handler func()

const (
	stateDisabled serialx.InterruptState = iota
	stateEnabled
)

const numSources = len(serialx.Sources)

// CPU models a single core with a global interrupt gate and per-source
// enable bits. It implements serialx.InterruptController and
// serialx.CriticalSection.
//
// Handlers run to completion and are serialised against critical sections:
// a request raised while the gate or its source is closed is latched in a
// pending bit (like an interrupt request register) and delivered when
// RestoreInterrupts reopens the gate.
//
// A goroutine inside a critical section excludes every other goroutine's
// critical sections as well as handlers, so several goroutines may share a
// driver. Nested sections on the same goroutine are counted; only the
// outermost RestoreInterrupts releases. Any goroutine may raise interrupts.
type CPU struct {
	mu            sync.Mutex
	global        bool
	enabled       [numSources]bool
	pending       [numSources]bool
	enables       [numSources]int
	disables      [numSources]int
	globalEnables int

	// exec is held while a handler runs or foreground code is inside a
	// critical section.
	exec sync.Mutex

	// fg is held by the goroutine inside the outermost critical section.
	fg    sync.Mutex
	owner atomic.Int64
	depth int // owner only

	vectors *xsync.MapOf[serialx.Source, Handler]
}

var (
	_ serialx.InterruptController = (*CPU)(nil)
	_ serialx.CriticalSection     = (*CPU)(nil)
)

// NewCPU returns a CPU with the global gate closed, as after reset.
func NewCPU() *CPU {
	return &CPU{vectors: xsync.NewMapOf[serialx.Source, Handler]()}
}

// Attach installs h as the handler for src.
func (c *CPU) Attach(src serialx.Source, h Handler) {
	c.vectors.Store(src, h)
}

// Detach removes the handler for src. Later requests are acknowledged and dropped.
func (c *CPU) Detach(src serialx.Source) {
	c.vectors.Delete(src)
}

func (c *CPU) Enable(src serialx.Source) {
	c.mu.Lock()
	c.enabled[src] = true
	c.enables[src]++
	c.mu.Unlock()
}

func (c *CPU) Disable(src serialx.Source) {
	c.mu.Lock()
	c.enabled[src] = false
	c.disables[src]++
	c.mu.Unlock()
}

// EnableGlobal opens the global gate and delivers latched requests.
func (c *CPU) EnableGlobal() {
	c.mu.Lock()
	c.global = true
	c.globalEnables++
	c.mu.Unlock()
	c.deliverPending()
}

// DisableInterrupts closes the global gate and returns the previous state.
// It waits for another goroutine's critical section to end and, if the gate
// was open, for a running handler to return.
func (c *CPU) DisableInterrupts() serialx.InterruptState {
	me := goid()
	if c.owner.Load() == me {
		c.depth++
		return stateDisabled
	}
	c.fg.Lock()
	c.owner.Store(me)
	c.depth = 1

	c.mu.Lock()
	was := c.global
	c.global = false
	c.mu.Unlock()

	if !was {
		return stateDisabled
	}
	c.exec.Lock()
	return stateEnabled
}

// RestoreInterrupts ends a critical section. The outermost one reopens the
// gate if state says it was open before the matching DisableInterrupts, and
// delivers requests latched in the meantime.
func (c *CPU) RestoreInterrupts(state serialx.InterruptState) {
	c.depth--
	if c.depth > 0 {
		return
	}
	c.owner.Store(0)
	if state == stateEnabled {
		c.mu.Lock()
		c.global = true
		c.mu.Unlock()
		c.exec.Unlock()
	}
	c.fg.Unlock()
	c.deliverPending()
}

// Fire raises an interrupt request for src. It runs the handler to
// completion and returns true, or latches the request and returns false if
// the gate or the source is closed.
func (c *CPU) Fire(src serialx.Source) bool {
	if !c.deliverable(src) {
		return false
	}

	c.exec.Lock()
	defer c.exec.Unlock()

	// The foreground may have closed the gate or the source while we waited.
	if !c.deliverable(src) {
		return false
	}
	if h, ok := c.vectors.Load(src); ok {
		h()
	}
	return true
}

// deliverable reports whether src can be serviced now, latching it otherwise.
func (c *CPU) deliverable(src serialx.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.global && c.enabled[src] {
		c.pending[src] = false
		return true
	}
	c.pending[src] = true
	return false
}

func (c *CPU) deliverPending() {
	for _, src := range serialx.Sources {
		c.mu.Lock()
		ready := c.pending[src] && c.global && c.enabled[src]
		c.mu.Unlock()
		if ready {
			c.Fire(src)
		}
	}
}

// GlobalEnabled reports whether the global gate is open.
func (c *CPU) GlobalEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.global
}

// Enabled reports whether src is enabled.
func (c *CPU) Enabled(src serialx.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[src]
}

// Pending reports whether a request for src is latched.
func (c *CPU) Pending(src serialx.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[src]
}

// EnableCount returns how many times src was enabled.
func (c *CPU) EnableCount(src serialx.Source) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enables[src]
}

// DisableCount returns how many times src was disabled.
func (c *CPU) DisableCount(src serialx.Source) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disables[src]
}

// goid returns the current goroutine's id, parsed from the
// "goroutine N [status]:" header of its stack trace.
func goid() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		panic("sim: cannot parse goroutine id: " + err.Error())
	}
	return id
}
