package crew

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock returns the current time, injected for tests
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CREW "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CREW "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CREW "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CREW "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap sugared logger to Logger
func NewZapLogger(sugar *zap.SugaredLogger) Logger {
	if sugar == nil {
		return defLogger{}
	}
	return zapLogger{sugar: sugar}
}

func (z zapLogger) Debug(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z zapLogger) Info(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z zapLogger) Warn(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z zapLogger) Error(format string, args ...any) { z.sugar.Errorf(format, args...) }

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
