package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger used across the academy services.
// - package-level Debugf/Infof/Warnf/Errorf/Fatalf for wiring code
// - L() hands out the underlying *zap.Logger for components that take one injected

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = newProduction(level)
	sugar = base.Sugar()
)

func newProduction(lvl zap.AtomicLevel) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// ParseLevel maps debug, info, warn, error and fatal (case-insensitive) to a zap level.
// Unknown input is Info.
func ParseLevel(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init sets the global log level. Call early during startup. Default level is Info.
func Init(l string) {
	level.SetLevel(ParseLevel(l))
}

// SetLogger replaces the backing logger; tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the backing zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func enabled(l zapcore.Level) bool {
	return level.Enabled(l)
}

func Debugf(format string, v ...interface{}) {
	if !enabled(zapcore.DebugLevel) {
		return
	}
	s().Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	if !enabled(zapcore.InfoLevel) {
		return
	}
	s().Infof(format, v...)
}

func Warnf(format string, v ...interface{}) {
	if !enabled(zapcore.WarnLevel) {
		return
	}
	s().Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	if !enabled(zapcore.ErrorLevel) {
		return
	}
	s().Errorf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	s().Fatalf(format, v...)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
