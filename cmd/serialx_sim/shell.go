// cmd/serialx_sim/shell.go

package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/jangala-dev/tinygo-serialx/serialx"
	"github.com/jangala-dev/tinygo-serialx/sim"
	"github.com/jangala-dev/tinygo-serialx/trace"
)

const shellKey = "$shell"

// Shell is the ishell front end of a simulated board.
type Shell struct {
	Shell  *ishell.Shell
	Board  *sim.Board
	Serial *serialx.Serial
	Trace  *trace.Trace

	stopRun context.CancelFunc
}

var commands = []*ishell.Cmd{
	&WriteCmd,
	&ReceiveCmd,
	&TickCmd,
	&DrainCmd,
	&ReadCmd,
	&StatsCmd,
	&WireCmd,
	&LineCmd,
	&RunCmd,
	&StopCmd,
	&TraceCmd,
}

// New creates a shell bound to board and s.
func New(board *sim.Board, s *serialx.Serial) *Shell {
	sh := &Shell{
		Shell:  ishell.New(),
		Board:  board,
		Serial: s,
		Trace:  trace.New(s, trace.Info),
	}
	sh.Shell.Set(shellKey, sh)
	sh.Shell.SetPrompt(fmt.Sprintf("[%s %s] > ", s.Config().Name(), s.Config().Line()))
	for _, cmd := range commands {
		sh.Shell.AddCmd(cmd)
	}
	return sh
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run processes args as a single command, or runs the interactive shell.
func (sh *Shell) Run(args ...string) {
	defer sh.stop()
	if len(args) > 0 {
		if err := sh.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if evalOnly {
		log.Fatalln("command expected")
	}
	sh.Shell.Run()
}

func (sh *Shell) stop() {
	if sh.stopRun != nil {
		sh.stopRun()
		sh.stopRun = nil
	}
}

// payload joins command arguments with spaces and expands Go escapes such as
// \r, \n, \" and \xNN. A bare quote is taken literally.
func payload(args []string) ([]byte, error) {
	in := strings.Join(args, " ")
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(in); i++ {
		switch c := in[i]; {
		case c == '\\' && i+1 < len(in):
			b.WriteByte(c)
			i++
			b.WriteByte(in[i])
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	s, err := strconv.Unquote(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid escape: %v", err)
	}
	return []byte(s), nil
}

func countArg(c *ishell.Context, def int) (int, error) {
	if len(c.Args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid COUNT %q", c.Args[0])
	}
	return n, nil
}

var (
	// WriteCmd queues bytes without blocking.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "TEXT (\\r \\n \\xNN escapes)",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			p, err := payload(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			n := sh.Serial.TryWrite(p)
			c.Printf("accepted %d/%d, tx free %d\n", n, len(p), sh.Serial.TxFree())
		},
	}

	// ReceiveCmd puts bytes on the receive line.
	ReceiveCmd = ishell.Cmd{
		Name:    "rx",
		Aliases: []string{"r"},
		Help:    "TEXT (\\r \\n \\xNN escapes)",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			p, err := payload(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			n := sh.Board.Receive(p...)
			c.Printf("serviced %d/%d, buffered %d\n", n, len(p), sh.Serial.Buffered())
		},
	}

	// TickCmd advances the hardware.
	TickCmd = ishell.Cmd{
		Name:    "tick",
		Aliases: []string{"t"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			n, err := countArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			for i := 0; i < n; i++ {
				sh.Board.Tick()
			}
			c.Printf("tx busy %v\n", sh.Serial.TxBusy())
		},
	}

	// DrainCmd ticks until the transmit path is idle.
	DrainCmd = ishell.Cmd{
		Name:    "drain",
		Aliases: []string{"d"},
		Help:    "[MAX]",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			limit, err := countArg(c, serialx.MaxBufferSize)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d ticks\n", sh.Board.Drain(limit))
		},
	}

	// ReadCmd reads everything buffered.
	ReadCmd = ishell.Cmd{
		Name: "read",
		Help: "",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			var out []byte
			for {
				b, err := sh.Serial.ReadByte()
				if err != nil {
					break
				}
				out = append(out, b)
			}
			c.Printf("%q\n", out)
		},
	}

	// StatsCmd prints driver counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "[reset]",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			if len(c.Args) > 0 && c.Args[0] == "reset" {
				sh.Serial.ResetStats()
			}
			st := sh.Serial.Stats()
			c.Printf("rx: irqs=%d bytes=%d dropped=%d overflow=%v buffered=%d\n",
				st.RxInterrupts, st.RxBytes, st.RxDropped, sh.Serial.Overflowed(), sh.Serial.Buffered())
			c.Printf("tx: irqs=%d bytes=%d full=%d primes=%d enables=%d disables=%d busy=%v\n",
				st.TxInterrupts, st.TxBytes, st.TxFull, st.TxPrimes, st.TxEnables, st.TxDisables, sh.Serial.TxBusy())
		},
	}

	// WireCmd prints what reached the transmit data register.
	WireCmd = ishell.Cmd{
		Name: "wire",
		Help: "[clear]",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			c.Printf("%q\n", sh.Board.UART.Written())
			if len(c.Args) > 0 && c.Args[0] == "clear" {
				sh.Board.UART.ClearWritten()
			}
		},
	}

	// LineCmd prints the applied line configuration.
	LineCmd = ishell.Cmd{
		Name: "line",
		Help: "",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			ibrd, fbrd := sh.Board.UART.Divisors()
			cfg := sh.Serial.Config()
			c.Printf("%s clock=%dHz ibrd=%d fbrd=%d rx=%d tx=%d\n",
				sh.Board.UART.Line(), cfg.ClockHz(), ibrd, fbrd, cfg.RxBufferSize(), cfg.TxBufferSize())
		},
	}

	// RunCmd ticks the board in the background.
	RunCmd = ishell.Cmd{
		Name: "run",
		Help: "[PERIOD] (default 1ms)",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			period := time.Millisecond
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil || d <= 0 {
					c.Err(fmt.Errorf("invalid PERIOD %q", c.Args[0]))
					return
				}
				period = d
			}
			sh.stop()
			ctx, cancel := context.WithCancel(context.Background())
			sh.stopRun = cancel
			go sh.Board.Run(ctx, period)
		},
	}

	// StopCmd stops background ticking.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).stop()
		},
	}

	// TraceCmd writes a trace line through the driver. It blocks until the
	// line is queued, so start "run" first for anything longer than the ring.
	TraceCmd = ishell.Cmd{
		Name: "trace",
		Help: "debug|info|warn|error TEXT",
		Func: func(c *ishell.Context) {
			sh := ShellFrom(c)
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("LEVEL and TEXT required"))
				return
			}
			var level trace.Level
			switch c.Args[0] {
			case "debug":
				level = trace.Debug
			case "info":
				level = trace.Info
			case "warn":
				level = trace.Warning
			case "error":
				level = trace.Error
			default:
				c.Err(fmt.Errorf("invalid LEVEL %q", c.Args[0]))
				return
			}
			sh.Trace.Println(level, strings.Join(c.Args[1:], " "))
			if err := sh.Trace.Err(); err != nil {
				c.Err(err)
			}
		},
	}
)
