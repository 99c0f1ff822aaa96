package main

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLoggingLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		setupLogging(tt.level, "json")
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("setupLogging(%q): level = %v, want %v", tt.level, got, tt.want)
		}
	}
}
