package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogger_DefaultsToNop(t *testing.T) {
	SetLogger(nil)
	l := Logger()
	if l == nil {
		t.Fatalf("expected non-nil logger")
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected default logger to be a no-op")
	}
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	l := zap.NewExample()
	SetLogger(l)
	if Logger() != l {
		t.Fatalf("expected Logger to return the installed logger")
	}
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		env     string
		debugOn bool
	}{
		{name: "default info", opts: Options{}, debugOn: false},
		{name: "verbose debug", opts: Options{Verbose: true}, debugOn: true},
		{name: "env overrides verbose", opts: Options{Verbose: true}, env: "warn", debugOn: false},
		{name: "env debug", opts: Options{}, env: "debug", debugOn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.env)
			t.Setenv(EnvLogFormat, "")
			l, err := New(tt.opts)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.debugOn {
				t.Fatalf("debug enabled = %v, want %v", got, tt.debugOn)
			}
		})
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	t.Setenv(EnvLogFormat, "")
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := New(Options{Format: "json"}); err != nil {
		t.Fatalf("json format returned error: %v", err)
	}
}
