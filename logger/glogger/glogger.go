// logger/glogger/glogger.go

// Package glogger adapts github.com/golang/glog to logger.Logger. It lives in
// its own package so firmware builds never link glog or register its flags.
package glogger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/jangala-dev/tinygo-serialx/logger"
)

// callerDepth attributes records to the caller of the exported method.
const callerDepth = 1

var _ logger.Logger = (*glogLogger)(nil)

// glogLogger is a logger.Logger backed by github.com/golang/glog. glog has no
// runtime level of its own, so records below the configured level are
// dropped here; DebugLevel records additionally require -v=2.
type glogLogger struct {
	level  *atomic.Int32
	fields string
}

// New creates a glog-backed logger. glog's flags (-logtostderr, -v, ...)
// must be parsed by the program.
func New(level logger.Level) logger.Logger {
	lv := &atomic.Int32{}
	lv.Store(int32(level))
	return &glogLogger{level: lv}
}

func (l *glogLogger) enabled(level logger.Level) bool {
	return int32(level) >= l.level.Load()
}

func (l *glogLogger) Debug(msg string, keysAndValues ...any) {
	if l.enabled(logger.DebugLevel) && bool(glog.V(2)) {
		glog.InfoDepth(callerDepth, l.format(msg, keysAndValues))
	}
}

func (l *glogLogger) Info(msg string, keysAndValues ...any) {
	if l.enabled(logger.InfoLevel) {
		glog.InfoDepth(callerDepth, l.format(msg, keysAndValues))
	}
}

func (l *glogLogger) Warn(msg string, keysAndValues ...any) {
	if l.enabled(logger.WarnLevel) {
		glog.WarningDepth(callerDepth, l.format(msg, keysAndValues))
	}
}

func (l *glogLogger) Error(msg string, keysAndValues ...any) {
	if l.enabled(logger.ErrorLevel) {
		glog.ErrorDepth(callerDepth, l.format(msg, keysAndValues))
	}
}

func (l *glogLogger) Fatal(msg string, keysAndValues ...any) {
	glog.FatalDepth(callerDepth, l.format(msg, keysAndValues))
}

func (l *glogLogger) With(keyValues ...any) logger.Logger {
	return &glogLogger{
		level:  l.level,
		fields: l.fields + formatPairs(keyValues),
	}
}

func (l *glogLogger) Level() logger.Level { return logger.Level(l.level.Load()) }

func (l *glogLogger) SetLevel(level logger.Level) { l.level.Store(int32(level)) }

func (l *glogLogger) format(msg string, keysAndValues []any) string {
	return msg + l.fields + formatPairs(keysAndValues)
}

// formatPairs renders key-value pairs as " k=v k=v". A dangling key is
// rendered with the value "!MISSING".
func formatPairs(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprint(&b, kv[i])
		b.WriteByte('=')
		if i+1 < len(kv) {
			fmt.Fprint(&b, kv[i+1])
		} else {
			b.WriteString("!MISSING")
		}
	}
	return b.String()
}
