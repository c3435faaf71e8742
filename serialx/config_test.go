package serialx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangala-dev/tinygo-serialx/serialx"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := serialx.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "uart0", cfg.Name())
	assert.Equal(t, serialx.DefaultBaudRate, cfg.BaudRate())
	assert.Equal(t, serialx.ParityNone, cfg.Parity())
	assert.Equal(t, serialx.StopBits1, cfg.StopBits())
	assert.Equal(t, serialx.DefaultRxBufferSize, cfg.RxBufferSize())
	assert.Equal(t, serialx.DefaultTxBufferSize, cfg.TxBufferSize())
	assert.Equal(t, uint32(serialx.DefaultClockHz), cfg.ClockHz())
	assert.NotNil(t, cfg.GetLogger())
	assert.Equal(t, "115200-8N1", cfg.Line().String())
}

func TestNewConfig_WithOptions(t *testing.T) {
	cfg, err := serialx.NewConfig(
		serialx.WithName("uart1"),
		serialx.WithBaudRate(serialx.B9600),
		serialx.WithParity(serialx.ParityEven),
		serialx.WithStopBits(serialx.StopBits2),
		serialx.WithRxBufferSize(0),
		serialx.WithTxBufferSize(16),
		serialx.WithClockHz(16_000_000),
	)
	require.NoError(t, err)

	assert.Equal(t, "uart1", cfg.Name())
	assert.Equal(t, serialx.B9600, cfg.BaudRate())
	assert.Equal(t, serialx.ParityEven, cfg.Parity())
	assert.Equal(t, serialx.StopBits2, cfg.StopBits())
	assert.Equal(t, 0, cfg.RxBufferSize())
	assert.Equal(t, 16, cfg.TxBufferSize())
	assert.Equal(t, uint32(16_000_000), cfg.ClockHz())
	assert.Equal(t, "9600-8E2", cfg.Line().String())
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  serialx.Option
		want error
	}{
		{"baud not in set", serialx.WithBaudRate(12345), serialx.ErrInvalidBaudRate},
		{"baud zero", serialx.WithBaudRate(0), serialx.ErrInvalidBaudRate},
		{"parity", serialx.WithParity(serialx.Parity(7)), serialx.ErrInvalidParity},
		{"stop bits zero", serialx.WithStopBits(0), serialx.ErrInvalidStopBits},
		{"stop bits three", serialx.WithStopBits(3), serialx.ErrInvalidStopBits},
		{"rx negative", serialx.WithRxBufferSize(-1), serialx.ErrInvalidBufferSize},
		{"tx too large", serialx.WithTxBufferSize(serialx.MaxBufferSize + 1), serialx.ErrInvalidBufferSize},
		{"clock zero", serialx.WithClockHz(0), serialx.ErrInvalidClock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := serialx.NewConfig(tt.opt)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, cfg)
		})
	}
}

func TestNewConfig_BufferSizeBounds(t *testing.T) {
	cfg, err := serialx.NewConfig(
		serialx.WithRxBufferSize(serialx.MaxBufferSize),
		serialx.WithTxBufferSize(0),
	)
	require.NoError(t, err)
	assert.Equal(t, serialx.MaxBufferSize, cfg.RxBufferSize())
	assert.Equal(t, 0, cfg.TxBufferSize())
}

func TestLineConfig_Validate(t *testing.T) {
	ok := serialx.LineConfig{BaudRate: serialx.B57600, Parity: serialx.ParityOdd, StopBits: serialx.StopBits1}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "57600-8O1", ok.String())

	bad := ok
	bad.BaudRate = 100
	assert.ErrorIs(t, bad.Validate(), serialx.ErrInvalidBaudRate)

	bad = ok
	bad.Parity = 3
	assert.ErrorIs(t, bad.Validate(), serialx.ErrInvalidParity)

	bad = ok
	bad.StopBits = 0
	assert.ErrorIs(t, bad.Validate(), serialx.ErrInvalidStopBits)
}

func TestPL011Divisors(t *testing.T) {
	tests := []struct {
		clock      uint32
		baud       serialx.BaudRate
		ibrd, fbrd uint32
	}{
		{125_000_000, serialx.B115200, 67, 52},
		{125_000_000, serialx.B9600, 813, 51},
		{48_000_000, serialx.B115200, 26, 3},
	}

	for _, tt := range tests {
		ibrd, fbrd, err := serialx.PL011Divisors(tt.clock, tt.baud)
		require.NoError(t, err)
		assert.Equal(t, tt.ibrd, ibrd, "ibrd %d@%d", tt.baud, tt.clock)
		assert.Equal(t, tt.fbrd, fbrd, "fbrd %d@%d", tt.baud, tt.clock)
	}
}

func TestPL011Divisors_Unreachable(t *testing.T) {
	_, _, err := serialx.PL011Divisors(1_000, serialx.B115200)
	assert.ErrorIs(t, err, serialx.ErrBaudUnreachable)

	_, _, err = serialx.PL011Divisors(0, serialx.B115200)
	assert.ErrorIs(t, err, serialx.ErrInvalidClock)

	// 2 GHz / (16 * 1200) needs an integer divisor wider than 16 bits.
	_, _, err = serialx.PL011Divisors(2_000_000_000, serialx.B1200)
	assert.ErrorIs(t, err, serialx.ErrBaudUnreachable)
}

func TestParseParity(t *testing.T) {
	for in, want := range map[string]serialx.Parity{
		"N": serialx.ParityNone, "e": serialx.ParityEven, "O": serialx.ParityOdd,
	} {
		got, err := serialx.ParseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := serialx.ParseParity("X")
	assert.ErrorIs(t, err, serialx.ErrInvalidParity)
}
