// Package logger builds the zap loggers used across manualqa.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w at the given level
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core)
}

// NewStderr returns a logger for one-shot commands. Only warnings and
// errors are shown unless verbose is set.
func NewStderr(verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	return New(os.Stderr, level)
}

// NewFile returns a logger appending to path, used by the full-screen chat
// where stderr output would corrupt the display. The returned func flushes
// and closes the file.
func NewFile(path string, verbose bool) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	l := New(f, level)

	closer := func() {
		_ = l.Sync()
		_ = f.Close()
	}
	return l, closer, nil
}
