// serialx/ringbuffer.go

package serialx

// RingBuffer is a fixed-capacity byte FIFO with separate read and write cursors.
// Storage is allocated once by NewRingBuffer and never resized: interrupt
// handlers keep using the same backing array for the lifetime of the driver.
//
// RingBuffer does no locking. Callers that share an instance between an
// interrupt handler and foreground code must serialise foreground access
// (see CriticalSection).
type RingBuffer struct {
	buf  []byte
	head int // next slot to write
	tail int // next slot to read
	used int
}

// NewRingBuffer returns a ring buffer holding up to capacity bytes.
// A capacity of 0 is valid: Put and Get always fail.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Size returns the total capacity of the buffer in bytes.
func (rb *RingBuffer) Size() int { return len(rb.buf) }

// Used returns how many bytes are stored.
func (rb *RingBuffer) Used() int { return rb.used }

// Free returns how many more bytes Put will accept.
func (rb *RingBuffer) Free() int { return len(rb.buf) - rb.used }

// Put stores a byte in the buffer. If the buffer is already full, it returns false
// and the stored data is left untouched.
func (rb *RingBuffer) Put(val byte) bool {
	if rb.used == len(rb.buf) {
		return false
	}
	rb.buf[rb.head] = val
	rb.head = rb.advance(rb.head)
	rb.used++
	return true
}

// Get returns the oldest byte from the buffer. If the buffer is empty, it returns (0, false).
func (rb *RingBuffer) Get() (byte, bool) {
	if rb.used == 0 {
		return 0, false
	}
	v := rb.buf[rb.tail]
	rb.tail = rb.advance(rb.tail)
	rb.used--
	return v, true
}

// Peek returns the oldest byte without removing it.
func (rb *RingBuffer) Peek() (byte, bool) {
	if rb.used == 0 {
		return 0, false
	}
	return rb.buf[rb.tail], true
}

// Clear drops all stored bytes and resets both cursors to zero.
func (rb *RingBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
	rb.used = 0
}

func (rb *RingBuffer) advance(i int) int {
	i++
	if i == len(rb.buf) {
		return 0
	}
	return i
}
