package config

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"  info  ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Unknown(t *testing.T) {
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestReplaceLogLevelNames_Trace(t *testing.T) {
	attr := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(LevelTrace)}
	got := ReplaceLogLevelNames(nil, attr)
	if got.Value.String() != "TRACE" {
		t.Errorf("trace level rendered as %q, want TRACE", got.Value.String())
	}
}

func TestReplaceLogLevelNames_OtherLevelsUntouched(t *testing.T) {
	attr := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(slog.LevelInfo)}
	got := ReplaceLogLevelNames(nil, attr)
	if got.Value.Any().(slog.Level) != slog.LevelInfo {
		t.Errorf("info level changed: %v", got.Value)
	}
}
