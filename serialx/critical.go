// serialx/critical.go

package serialx

// InterruptState is the opaque global interrupt-accept state returned by
// CriticalSection.DisableInterrupts. On TinyGo targets it carries
// runtime/interrupt.State.
type InterruptState uintptr

// CriticalSection disables the processor's global interrupt-accept capability
// and later restores it.
//
// RestoreInterrupts must put back the state that DisableInterrupts observed,
// not unconditionally enable interrupts, so that nested sections never
// re-enable early:
//
//	state := cs.DisableInterrupts()
//	defer cs.RestoreInterrupts(state)
//
// Foreground code takes the guard around every access to a buffer that an
// interrupt handler also mutates. Handlers never take it: the hardware masks
// a source while its own handler runs.
type CriticalSection interface {
	DisableInterrupts() InterruptState
	RestoreInterrupts(state InterruptState)
}

// NoCriticalSection is a guard that does nothing. It is only correct when no
// interrupt handler can touch the driver, e.g. polling-only use on the host.
type NoCriticalSection struct{}

var _ CriticalSection = NoCriticalSection{}

func (NoCriticalSection) DisableInterrupts() InterruptState { return 0 }

func (NoCriticalSection) RestoreInterrupts(InterruptState) {}
