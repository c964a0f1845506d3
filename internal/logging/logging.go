// Package logging builds the process zap logger and holds the shared instance
// used by packages that are not handed a logger explicitly.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLogLevel  = "FEDHOST_LOG_LEVEL"
	EnvLogFormat = "FEDHOST_LOG_FORMAT"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// Logger returns the process logger. It is a no-op logger until SetLogger is called.
func Logger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger replaces the process logger. A nil logger resets to no-op.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Options control logger construction.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Format is "console" or "json". Empty means console.
	Format string
}

// New builds a logger writing to stderr so stdout stays clean for structured output.
// FEDHOST_LOG_LEVEL and FEDHOST_LOG_FORMAT override the options.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if env := strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))); env != "" {
		format = env
	}

	var cfg zap.Config
	switch format {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q (must be one of: console, json)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

func parseLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zapcore.InfoLevel, false
	case "debug", "trace":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}
