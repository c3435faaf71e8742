package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

func TestCPU_ResetState(t *testing.T) {
	assert := assert.New(t)
	c := NewCPU()

	fired := 0
	c.Attach(serialx.SourceReceiveComplete, func() { fired++ })
	c.Enable(serialx.SourceReceiveComplete)

	assert.False(c.GlobalEnabled())
	assert.False(c.Fire(serialx.SourceReceiveComplete))
	assert.True(c.Pending(serialx.SourceReceiveComplete))
	assert.Equal(0, fired)

	c.EnableGlobal()
	assert.Equal(1, fired)
	assert.False(c.Pending(serialx.SourceReceiveComplete))
}

func TestCPU_MaskedSourceLatches(t *testing.T) {
	assert := assert.New(t)
	c := NewCPU()
	c.EnableGlobal()

	fired := 0
	c.Attach(serialx.SourceTransmitReady, func() { fired++ })

	assert.False(c.Fire(serialx.SourceTransmitReady))
	assert.True(c.Pending(serialx.SourceTransmitReady))

	// Enabling the source alone does not deliver; the next gate reopen does.
	c.Enable(serialx.SourceTransmitReady)
	assert.Equal(0, fired)
	c.RestoreInterrupts(c.DisableInterrupts())
	assert.Equal(1, fired)

	assert.True(c.Fire(serialx.SourceTransmitReady))
	assert.Equal(2, fired)
	assert.Equal(1, c.EnableCount(serialx.SourceTransmitReady))

	c.Disable(serialx.SourceTransmitReady)
	assert.Equal(1, c.DisableCount(serialx.SourceTransmitReady))
	assert.False(c.Enabled(serialx.SourceTransmitReady))
}

func TestCPU_NestedCriticalSections(t *testing.T) {
	assert := assert.New(t)
	c := NewCPU()
	c.EnableGlobal()

	fired := 0
	c.Attach(serialx.SourceReceiveComplete, func() { fired++ })
	c.Enable(serialx.SourceReceiveComplete)

	outer := c.DisableInterrupts()
	inner := c.DisableInterrupts()
	assert.False(c.Fire(serialx.SourceReceiveComplete))

	c.RestoreInterrupts(inner)
	assert.False(c.GlobalEnabled())
	assert.Equal(0, fired)

	c.RestoreInterrupts(outer)
	assert.True(c.GlobalEnabled())
	assert.Equal(1, fired)
}

func TestCPU_CriticalSectionExcludesGoroutines(t *testing.T) {
	c := NewCPU()
	c.EnableGlobal()

	state := c.DisableInterrupts()
	entered := make(chan struct{})
	go func() {
		st := c.DisableInterrupts()
		close(entered)
		c.RestoreInterrupts(st)
	}()

	select {
	case <-entered:
		t.Fatal("second goroutine entered a held critical section")
	case <-time.After(20 * time.Millisecond):
	}
	assert.False(t, c.GlobalEnabled())

	c.RestoreInterrupts(state)
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second goroutine never entered")
	}
	assert.Eventually(t, c.GlobalEnabled, time.Second, time.Millisecond)
}

func TestGoid(t *testing.T) {
	id := goid()
	assert.Positive(t, id)
	assert.Equal(t, id, goid())

	other := make(chan int64)
	go func() { other <- goid() }()
	assert.NotEqual(t, id, <-other)
}

func TestCPU_RequestDuringCriticalSection(t *testing.T) {
	c := NewCPU()
	c.EnableGlobal()

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	c.Attach(serialx.SourceReceiveComplete, func() { record("isr") })
	c.Enable(serialx.SourceReceiveComplete)

	state := c.DisableInterrupts()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Fire(serialx.SourceReceiveComplete)
	}()
	time.Sleep(5 * time.Millisecond)
	record("foreground")
	c.RestoreInterrupts(state)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("interrupt never delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"foreground", "isr"}, order)
}

func TestCPU_Detach(t *testing.T) {
	c := NewCPU()
	c.EnableGlobal()
	c.Enable(serialx.SourceReceiveComplete)

	fired := 0
	c.Attach(serialx.SourceReceiveComplete, func() { fired++ })
	c.Detach(serialx.SourceReceiveComplete)

	assert.True(t, c.Fire(serialx.SourceReceiveComplete))
	assert.Equal(t, 0, fired)
}
