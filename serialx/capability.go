// serialx/capability.go

package serialx

// Source identifies one of the two UART interrupt sources a driver services.
type Source uint8

const (
	// SourceReceiveComplete fires when the receive data register holds a new byte.
	SourceReceiveComplete Source = iota
	// SourceTransmitReady fires while the transmit data register can accept a byte.
	SourceTransmitReady

	numSources
)

// Sources lists every interrupt source in dispatch order.
var Sources = [numSources]Source{SourceReceiveComplete, SourceTransmitReady}

func (s Source) String() string {
	switch s {
	case SourceReceiveComplete:
		return "rx-complete"
	case SourceTransmitReady:
		return "tx-ready"
	default:
		return "unknown"
	}
}

// InterruptController enables and disables individual interrupt sources and
// opens the global interrupt gate. The driver only calls into it.
//
// Only the UART's own two sources may ever dispatch into a given Serial; no
// other handler at equal or higher priority may touch the same buffers.
type InterruptController interface {
	Enable(src Source)
	Disable(src Source)
	EnableGlobal()
}

// Transport is the register-level view of one UART peripheral.
//
// Exactly one Serial owns a Transport. Nothing checks this at run time; it is
// a construction rule, like owning the peripheral itself.
type Transport interface {
	// ApplyLineConfig programs baud divisor, parity and stop bits for a
	// peripheral clocked at clockHz.
	ApplyLineConfig(line LineConfig, clockHz uint32) error
	// WriteData loads b into the transmit data register.
	WriteData(b byte)
	// ReadData returns the receive data register. Reading clears the
	// hardware receive-pending condition.
	ReadData() byte
	// TransmitReady reports whether the transmit data register can accept a byte.
	TransmitReady() bool
	// ReceivePending reports whether the receive data register holds a byte.
	ReceivePending() bool
}
