// cmd/serialx_sim/main.go

// Command serialx_sim runs a serialx driver on a simulated board behind an
// interactive shell. Bytes typed with "rx" arrive on the line, "write" queues
// bytes for transmission and "tick"/"drain"/"run" advance the hardware.
//
//	serialx_sim -baud 9600 -tx 4 -rx 0
//	serialx_sim -log glog -logtostderr -v 2 write hello
package main

import (
	"flag"
	"log"
	"os"

	"github.com/jangala-dev/tinygo-serialx/logger"
	"github.com/jangala-dev/tinygo-serialx/logger/glogger"
	"github.com/jangala-dev/tinygo-serialx/serialx"
	"github.com/jangala-dev/tinygo-serialx/sim"
)

var (
	baud     = uint(serialx.DefaultBaudRate)
	parity   = "N"
	stopBits = uint(serialx.DefaultStopBits)
	rxSize   = serialx.DefaultRxBufferSize
	txSize   = serialx.DefaultTxBufferSize
	clockHz  = uint(serialx.DefaultClockHz)
	logMode  = "console"
	logLevel = "info"
	evalOnly bool
)

func init() {
	flag.UintVar(&baud, "baud", baud, "Line rate.")
	flag.StringVar(&parity, "parity", parity, "Parity: N, E or O.")
	flag.UintVar(&stopBits, "stop", stopBits, "Stop bits: 1 or 2.")
	flag.IntVar(&rxSize, "rx", rxSize, "RX ring capacity, 0 for direct reads.")
	flag.IntVar(&txSize, "tx", txSize, "TX ring capacity, 0 for direct writes.")
	flag.UintVar(&clockHz, "clock", clockHz, "Peripheral clock in Hz.")
	flag.StringVar(&logMode, "log", logMode, "Log backend: console, json or glog.")
	flag.StringVar(&logLevel, "log-level", logLevel, "Log level: debug, info, warn or error.")
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

func main() {
	flag.Parse()

	l := newLogger()
	logger.SetLogger(l)

	p, err := serialx.ParseParity(parity)
	if err != nil {
		log.Fatalln(err)
	}

	board := sim.NewBoard()
	s, err := board.NewSerial(
		serialx.WithName("SIM0"),
		serialx.WithBaudRate(serialx.BaudRate(baud)),
		serialx.WithParity(p),
		serialx.WithStopBits(serialx.StopBits(stopBits)),
		serialx.WithRxBufferSize(rxSize),
		serialx.WithTxBufferSize(txSize),
		serialx.WithClockHz(uint32(clockHz)),
		serialx.WithLogger(l),
	)
	if err != nil {
		log.Fatalln(err)
	}
	defer s.Close()

	New(board, s).Run(flag.Args()...)
}

func newLogger() logger.Logger {
	level := parseLevel(logLevel)
	switch logMode {
	case "glog":
		return glogger.New(level)
	case "json":
		return logger.NewSlog(level, false)
	default:
		return logger.NewConsole(os.Stderr, level)
	}
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	}
	return logger.InfoLevel
}
