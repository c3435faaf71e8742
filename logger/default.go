// logger/default.go

package logger

import "sync/atomic"

var defLogger atomic.Value

func init() {
	defLogger.Store(loggerBox{NewSlog(InfoLevel, false)})
}

// loggerBox keeps atomic.Value's stored type constant across backends.
type loggerBox struct{ Logger }

func Debug(msg string, keysAndValues ...any) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	GetLogger().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	return defLogger.Load().(loggerBox).Logger
}

// SetLogger replaces the process-wide default logger. A nil logger is ignored.
func SetLogger(l Logger) {
	if l != nil {
		defLogger.Store(loggerBox{l})
	}
}

func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
