package system

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMemoryReportsProcess(t *testing.T) {
	stats := Memory()
	if stats.collectFailed {
		t.Skip("memory statistics unavailable on this host")
	}
	if stats.ProcessRSSMB == 0 && stats.RAMUsedMB == 0 {
		t.Fatalf("expected some memory usage, got %+v", stats)
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	log.Info().Object("memory", MemoryStats{ProcessRSSMB: 12, RAMPercent: 50}).Msg("snapshot")

	out := buf.String()
	for _, want := range []string{`"process_rss_mb":12`, `"ram_percent":50`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
	if strings.Contains(out, "partial") {
		t.Errorf("unexpected partial flag in %s", out)
	}
}
