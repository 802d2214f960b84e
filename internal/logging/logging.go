// Package logging builds the process logger and routes the library debug
// hooks into it.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/reactive"
	"github.com/recera/patchview/pkg/refresh"
	"github.com/recera/patchview/pkg/scheduler"
)

// Config holds configuration for the logger
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console

	// OutputPaths defaults to stderr so stdout stays free for command output
	OutputPaths []string
}

// New creates a logger with the given configuration
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoding := cfg.Format
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      level == zapcore.DebugLevel,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("patchview"), nil
}

// ParseLevel converts a level name; empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// WireDebugHooks sends the packages' debug output to logger at debug level.
// It does nothing unless debug is enabled, so the hooks stay nil and cost
// nothing otherwise.
func WireDebugHooks(logger *zap.Logger) {
	if logger == nil || !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	sugar := logger.Sugar()
	hook := func(name string) func(args ...interface{}) {
		named := sugar.Named(name)
		return func(args ...interface{}) {
			named.Debugln(args...)
		}
	}

	scheduler.SetDebugLog(hook("scheduler"))
	reactive.SetDebugLog(hook("reactive"))
	drag.SetDebugLog(hook("drag"))
	refresh.SetDebugLog(hook("refresh"))
}

// UnwireDebugHooks clears every hook set by WireDebugHooks
func UnwireDebugHooks() {
	scheduler.SetDebugLog(nil)
	reactive.SetDebugLog(nil)
	drag.SetDebugLog(nil)
	refresh.SetDebugLog(nil)
}
