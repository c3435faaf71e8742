// serialx/errors.go

package serialx

import "errors"

var (
	// ErrBufferFull is returned by WriteByte when the transmit buffer has no
	// free slot. The byte was not accepted; the caller decides to retry or drop.
	ErrBufferFull = errors.New("serialx: tx buffer full")
	// ErrBufferEmpty is returned by ReadByte when no received byte is available.
	ErrBufferEmpty = errors.New("serialx: rx buffer empty")
	// ErrClosed is returned by operations on a closed driver.
	ErrClosed = errors.New("serialx: closed")

	ErrInvalidBaudRate   = errors.New("serialx: invalid baud rate")
	ErrInvalidParity     = errors.New("serialx: invalid parity")
	ErrInvalidStopBits   = errors.New("serialx: invalid stop bits")
	ErrInvalidBufferSize = errors.New("serialx: invalid buffer size")
	ErrInvalidClock      = errors.New("serialx: invalid clock frequency")
	// ErrBaudUnreachable reports a baud rate the peripheral clock cannot divide down to.
	ErrBaudUnreachable = errors.New("serialx: baud rate unreachable from clock")
)
