package serialx_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

func TestRingBuffer(t *testing.T) {
	t.Run("Zero Capacity", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(0)

		assert.Equal(0, rb.Size())
		assert.False(rb.Put('a'))
		_, ok := rb.Get()
		assert.False(ok)
		_, ok = rb.Peek()
		assert.False(ok)
		assert.Equal(0, rb.Used())
	})

	t.Run("Put and Get", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(3)

		assert.True(rb.Put('a'))
		assert.True(rb.Put('b'))
		assert.Equal(2, rb.Used())
		assert.Equal(1, rb.Free())

		b, ok := rb.Get()
		assert.True(ok)
		assert.Equal(byte('a'), b)
		b, ok = rb.Get()
		assert.True(ok)
		assert.Equal(byte('b'), b)

		_, ok = rb.Get()
		assert.False(ok)
	})

	t.Run("Full Rejects Without Overwrite", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(2)

		assert.True(rb.Put(1))
		assert.True(rb.Put(2))
		assert.False(rb.Put(3))
		assert.Equal(2, rb.Used())

		b, _ := rb.Get()
		assert.Equal(byte(1), b)
		b, _ = rb.Get()
		assert.Equal(byte(2), b)
	})

	t.Run("Wrap Around", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(4)

		for i := 0; i < 4; i++ {
			require.True(t, rb.Put(byte(i)))
		}
		for round := 4; round < 40; round++ {
			b, ok := rb.Get()
			require.True(t, ok)
			assert.Equal(byte(round-4), b)
			require.True(t, rb.Put(byte(round)))
			assert.Equal(4, rb.Used())
		}
	})

	t.Run("Peek", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(2)
		rb.Put('x')
		rb.Put('y')

		b, ok := rb.Peek()
		assert.True(ok)
		assert.Equal(byte('x'), b)
		assert.Equal(2, rb.Used()) // Peek does not consume

		rb.Get()
		b, _ = rb.Peek()
		assert.Equal(byte('y'), b)
	})

	t.Run("Clear", func(t *testing.T) {
		assert := assert.New(t)
		rb := serialx.NewRingBuffer(2)
		rb.Put('x')
		rb.Clear()

		assert.Equal(0, rb.Used())
		assert.Equal(2, rb.Free())
		_, ok := rb.Get()
		assert.False(ok)
	})
}

// TestRingBuffer_RandomOps checks count bounds and FIFO order against a slice
// model over random push/pop sequences.
func TestRingBuffer_RandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, capacity := range []int{0, 1, 2, 7, 16} {
		rb := serialx.NewRingBuffer(capacity)
		var model []byte

		for i := 0; i < 5000; i++ {
			if rng.Intn(2) == 0 {
				v := byte(rng.Intn(256))
				ok := rb.Put(v)
				require.Equal(t, len(model) < capacity, ok, "cap=%d op=%d", capacity, i)
				if ok {
					model = append(model, v)
				}
			} else {
				v, ok := rb.Get()
				require.Equal(t, len(model) > 0, ok, "cap=%d op=%d", capacity, i)
				if ok {
					require.Equal(t, model[0], v, "cap=%d op=%d", capacity, i)
					model = model[1:]
				}
			}
			require.GreaterOrEqual(t, rb.Used(), 0)
			require.LessOrEqual(t, rb.Used(), capacity)
			require.Equal(t, len(model), rb.Used())
		}
	}
}
