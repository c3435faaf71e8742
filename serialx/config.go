// serialx/config.go

package serialx

import (
	"fmt"

	"github.com/jangala-dev/tinygo-serialx/logger"
)

// BaudRate is one of the supported line rates.
type BaudRate uint32

const (
	B1200   BaudRate = 1200
	B2400   BaudRate = 2400
	B4800   BaudRate = 4800
	B9600   BaudRate = 9600
	B19200  BaudRate = 19200
	B38400  BaudRate = 38400
	B57600  BaudRate = 57600
	B115200 BaudRate = 115200
	B230400 BaudRate = 230400
)

// Valid reports whether b is in the supported set.
func (b BaudRate) Valid() bool {
	switch b {
	case B1200, B2400, B4800, B9600, B19200, B38400, B57600, B115200, B230400:
		return true
	}
	return false
}

// Parity defines the parity setting used for UART communication.
type Parity uint8

const (
	// ParityNone disables parity generation and checking (the most common setting).
	ParityNone Parity = iota
	// ParityEven sets even parity (total number of 1 bits is even).
	ParityEven
	// ParityOdd sets odd parity (total number of 1 bits is odd).
	ParityOdd
)

func (p Parity) letter() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	}
	return "?"
}

// ParseParity accepts the frame-notation letter "N", "E" or "O" in either case.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "N", "n":
		return ParityNone, nil
	case "E", "e":
		return ParityEven, nil
	case "O", "o":
		return ParityOdd, nil
	}
	return 0, fmt.Errorf("serialx: parity %q: %w", s, ErrInvalidParity)
}

// StopBits is the number of stop bits per frame.
type StopBits uint8

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

// DataBits is fixed; framing beyond 8 data bits is left to the hardware.
const DataBits = 8

// Defaults applied by NewConfig.
const (
	DefaultBaudRate     = B115200
	DefaultParity       = ParityNone
	DefaultStopBits     = StopBits1
	DefaultRxBufferSize = 64
	DefaultTxBufferSize = 64
	DefaultClockHz      = 125_000_000 // RP2040 peripheral clock

	MaxBufferSize = 1 << 15
)

// LineConfig is the per-frame line setting handed to the Transport.
type LineConfig struct {
	BaudRate BaudRate
	Parity   Parity
	StopBits StopBits
}

// Validate checks every field against the supported sets.
func (lc LineConfig) Validate() error {
	if !lc.BaudRate.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidBaudRate, lc.BaudRate)
	}
	if lc.Parity > ParityOdd {
		return fmt.Errorf("%w: %d", ErrInvalidParity, lc.Parity)
	}
	if lc.StopBits != StopBits1 && lc.StopBits != StopBits2 {
		return fmt.Errorf("%w: %d", ErrInvalidStopBits, lc.StopBits)
	}
	return nil
}

// String returns the conventional "115200-8N1" form.
func (lc LineConfig) String() string {
	return fmt.Sprintf("%d-%d%s%d", lc.BaudRate, DataBits, lc.Parity.letter(), lc.StopBits)
}

// PL011Divisors computes the PL011 integer and fractional baud divisors for a
// peripheral clocked at clockHz. It rejects rates the 16-bit integer divisor
// cannot express instead of clamping them.
func PL011Divisors(clockHz uint32, br BaudRate) (ibrd, fbrd uint32, err error) {
	if clockHz == 0 {
		return 0, 0, ErrInvalidClock
	}
	if br == 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidBaudRate, br)
	}
	div := 8 * uint64(clockHz) / uint64(br)
	i := div >> 7
	switch {
	case i == 0 || i > 65535:
		return 0, 0, fmt.Errorf("%w: %d baud at %d Hz", ErrBaudUnreachable, br, clockHz)
	case i == 65535:
		return 65535, 0, nil
	}
	return uint32(i), uint32(((div & 0x7f) + 1) / 2), nil
}

// Config holds the construction-time settings of a Serial.
type Config struct {
	name   string
	line   LineConfig
	rxSize int
	txSize int
	clock  uint32
	logger logger.Logger
}

// Option configures a Config.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(cfg *Config) error { return f(cfg) }

// NewConfig returns a validated configuration. Options are applied in order;
// the first invalid option aborts construction.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name: "uart0",
		line: LineConfig{
			BaudRate: DefaultBaudRate,
			Parity:   DefaultParity,
			StopBits: DefaultStopBits,
		},
		rxSize: DefaultRxBufferSize,
		txSize: DefaultTxBufferSize,
		clock:  DefaultClockHz,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Name returns the peripheral name used in log records.
func (cfg *Config) Name() string { return cfg.name }

// Line returns the line configuration.
func (cfg *Config) Line() LineConfig { return cfg.line }

// BaudRate returns the configured baud rate.
func (cfg *Config) BaudRate() BaudRate { return cfg.line.BaudRate }

// Parity returns the configured parity.
func (cfg *Config) Parity() Parity { return cfg.line.Parity }

// StopBits returns the configured stop bit count.
func (cfg *Config) StopBits() StopBits { return cfg.line.StopBits }

// RxBufferSize returns the receive ring capacity; 0 selects direct mode.
func (cfg *Config) RxBufferSize() int { return cfg.rxSize }

// TxBufferSize returns the transmit ring capacity; 0 selects direct mode.
func (cfg *Config) TxBufferSize() int { return cfg.txSize }

// ClockHz returns the peripheral clock frequency.
func (cfg *Config) ClockHz() uint32 { return cfg.clock }

// GetLogger returns the logger used by the driver.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// WithBaudRate sets the line rate.
func WithBaudRate(br BaudRate) Option {
	return optionFunc(func(cfg *Config) error {
		if !br.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidBaudRate, br)
		}
		cfg.line.BaudRate = br
		return nil
	})
}

// WithParity sets the parity mode.
func WithParity(p Parity) Option {
	return optionFunc(func(cfg *Config) error {
		if p > ParityOdd {
			return fmt.Errorf("%w: %d", ErrInvalidParity, p)
		}
		cfg.line.Parity = p
		return nil
	})
}

// WithStopBits sets the number of stop bits (1 or 2).
func WithStopBits(sb StopBits) Option {
	return optionFunc(func(cfg *Config) error {
		if sb != StopBits1 && sb != StopBits2 {
			return fmt.Errorf("%w: %d", ErrInvalidStopBits, sb)
		}
		cfg.line.StopBits = sb
		return nil
	})
}

// WithRxBufferSize sets the receive ring capacity. 0 selects direct mode.
func WithRxBufferSize(n int) Option {
	return optionFunc(func(cfg *Config) error {
		if n < 0 || n > MaxBufferSize {
			return fmt.Errorf("%w: rx %d not in [0, %d]", ErrInvalidBufferSize, n, MaxBufferSize)
		}
		cfg.rxSize = n
		return nil
	})
}

// WithTxBufferSize sets the transmit ring capacity. 0 selects direct mode.
func WithTxBufferSize(n int) Option {
	return optionFunc(func(cfg *Config) error {
		if n < 0 || n > MaxBufferSize {
			return fmt.Errorf("%w: tx %d not in [0, %d]", ErrInvalidBufferSize, n, MaxBufferSize)
		}
		cfg.txSize = n
		return nil
	})
}

// WithClockHz sets the peripheral clock the baud divisor is derived from.
func WithClockHz(hz uint32) Option {
	return optionFunc(func(cfg *Config) error {
		if hz == 0 {
			return ErrInvalidClock
		}
		cfg.clock = hz
		return nil
	})
}

// WithName sets the peripheral name reported in logs.
func WithName(name string) Option {
	return optionFunc(func(cfg *Config) error {
		cfg.name = name
		return nil
	})
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(cfg *Config) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	})
}
