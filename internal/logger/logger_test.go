package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", false, &buf)
	t.Cleanup(func() { InitWithWriter("info", false, &bytes.Buffer{}) })

	WithComponent("recorder").Info().Int("frames", 3).Msg("finalized")

	out := buf.String()
	if !strings.Contains(out, `"component":"recorder"`) {
		t.Fatalf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"frames":3`) {
		t.Fatalf("missing frames field: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", false, &buf)
	t.Cleanup(func() { InitWithWriter("info", false, &bytes.Buffer{}) })

	Get().Info().Msg("hidden")
	Get().Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn should be emitted: %s", out)
	}
}
