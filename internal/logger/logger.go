// Package logger is the process-wide logger for deep-researcher.
//
// Debug, Info, Warn and Section only print in verbose mode (--verbose), so
// a research run can be traced state by state. Error always prints.
// Lines go to stderr as "[LEVEL] message".
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	sink    io.Writer = os.Stderr
	sugared           = build(os.Stderr)
)

func build(w io.Writer) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeLevel: func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString("[" + l.CapitalString() + "]")
		},
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)).Sugar()
}

// SetVerbose switches between all levels and errors only.
func SetVerbose(v bool) {
	if v {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.ErrorLevel)
	}
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// SetOutput redirects logging, normally to the command's stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
	sugared = build(w)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// Debug logs detail that is only shown in verbose mode.
func Debug(format string, args ...any) { current().Debugf(format, args...) }

// Info logs normal progress messages.
func Info(format string, args ...any) { current().Infof(format, args...) }

// Warn reports a problem that was recovered from, such as a fallback.
func Warn(format string, args ...any) { current().Warnf(format, args...) }

// Error reports a failure the caller could not recover from.
func Error(format string, args ...any) { current().Errorf(format, args...) }

// Section prints a phase header in verbose mode.
func Section(name string) {
	if !IsVerbose() {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(sink, "\n=== %s ===\n", name)
}
