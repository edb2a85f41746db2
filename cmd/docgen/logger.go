package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goliatone/go-docgen/docgen"
)

// Logger is a levelled printf logger. Debug output is dropped unless verbose.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	prefix  string
	verbose bool
	now     func() time.Time
}

// NewLogger writes to out with the "docgen" prefix.
func NewLogger(out io.Writer, verbose bool) *Logger {
	return &Logger{out: out, prefix: "docgen", verbose: verbose, now: time.Now}
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.printf("DEBUG", format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.printf("INFO", format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.printf("ERROR", format, args...)
}

func (l *Logger) printf(level, format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s: %s\n", l.now().Format(time.RFC3339), level, l.prefix, fmt.Sprintf(format, args...))
}

// metricsLog writes conversion lifecycle events at debug level.
type metricsLog struct {
	logger *Logger
}

func (m metricsLog) Emit(_ context.Context, evt docgen.MetricsEvent) error {
	m.logger.Debugf("metric %s id=%s format=%s bytes=%d duration=%s error=%s",
		evt.Name, evt.RequestID, evt.Format, evt.Bytes, evt.Duration, evt.ErrorKind)
	return nil
}
