// Package logging builds the zap loggers used by ledgerdeck. The dashboard owns
// the terminal, so interactive sessions log to a file; plain CLI commands log
// to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component tags log lines with the subsystem that emitted them.
type Component string

const (
	ComponentAPI     Component = "API"
	ComponentStore   Component = "STORE"
	ComponentFetcher Component = "FETCHER"
	ComponentWeb3    Component = "WEB3"
	ComponentUI      Component = "UI"
)

// encoder returns a compact console encoder: HH:MM:SS, single-letter level,
// caller file without extension.
func encoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05"))
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch level {
		case zapcore.DebugLevel:
			enc.AppendString("D")
		case zapcore.InfoLevel:
			enc.AppendString("I")
		case zapcore.WarnLevel:
			enc.AppendString("W")
		case zapcore.ErrorLevel:
			enc.AppendString("E")
		default:
			enc.AppendString("?")
		}
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := caller.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		enc.AppendString(strings.TrimSuffix(file, ".go"))
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// ParseLevel converts a config level name into a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return lvl, fmt.Errorf("logging: invalid level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a logger writing to w at the given level.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(encoder(), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller())
}

// NewFile returns a logger appending to path, creating parent directories.
// The returned close function flushes and closes the file.
func NewFile(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: opening %s: %w", path, err)
	}
	logger := New(f, level)
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

// For returns a child logger tagged with component.
func For(l *zap.Logger, c Component) *zap.Logger {
	return l.With(zap.String("component", string(c)))
}
