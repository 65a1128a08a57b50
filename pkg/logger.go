package pkg

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelErrOnly
	LogLevelWarn
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelNone:
		return "none"
	case LogLevelErrOnly:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelDebug:
		return "debug"
	}
	return "unknown"
}

// ParseLogLevel accepts the names printed by LogLevel.String.
// Unknown names fall back to LogLevelErrOnly.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return LogLevelNone
	case "warn", "warning":
		return LogLevelWarn
	case "debug", "info":
		return LogLevelDebug
	}
	return LogLevelErrOnly
}

var (
	log_level atomic.Int32
	logger    atomic.Pointer[zap.SugaredLogger]
)

func init() {
	log_level.Store(int32(LogLevelErrOnly))
	logger.Store(newLogger(LogLevelErrOnly))
}

func newLogger(level LogLevel) *zap.SugaredLogger {
	var z_level zapcore.Level
	switch level {
	case LogLevelNone:
		return zap.NewNop().Sugar()
	case LogLevelErrOnly:
		z_level = zapcore.ErrorLevel
	case LogLevelWarn:
		z_level = zapcore.WarnLevel
	default:
		z_level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(z_level)
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLogLevel swaps the package logger. Safe to call while timers log.
func SetLogLevel(level LogLevel) {
	l := newLogger(level)
	log_level.Store(int32(level))
	logger.Store(l)
	l.Debugln("log level set to", level)
}

func GetLogLevel() LogLevel { return LogLevel(log_level.Load()) }

// Logger exposes the underlying logger for structured fields.
func Logger() *zap.SugaredLogger { return logger.Load() }

func InfoLog(args ...any)  { logger.Load().Infoln(args...) }
func ErrorLog(args ...any) { logger.Load().Errorln(args...) }
func FatalLog(args ...any) { logger.Load().Fatalln(args...) }
func WarnLog(args ...any)  { logger.Load().Warnln(args...) }
func DebugLog(args ...any) { logger.Load().Debugln(args...) }
