package config

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/gifenc"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, path
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	m, path := newTestManager(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	cfg := m.Get()
	if cfg.Recording.FPS != 30 || cfg.Recording.Quality != "skip_frames" {
		t.Errorf("defaults = %d/%s", cfg.Recording.FPS, cfg.Recording.Quality)
	}
	if cfg.Recording.MaxDurationSeconds != 60 {
		t.Errorf("max duration = %d", cfg.Recording.MaxDurationSeconds)
	}
	if m.GetConfigDir() != filepath.Dir(path) {
		t.Errorf("config dir = %s", m.GetConfigDir())
	}
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `server_port: 9000
recording:
  fps: 24
  quality: ultra
  max_duration_seconds: -5
  delay_mode: sometimes
  capture_backend: wayland
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := m.Get()
	if cfg.ServerPort != 9000 {
		t.Errorf("port = %d, want 9000", cfg.ServerPort)
	}
	if cfg.Recording.FPS != 30 {
		t.Errorf("fps = %d, want 30", cfg.Recording.FPS)
	}
	if cfg.Recording.Quality != "skip_frames" {
		t.Errorf("quality = %s", cfg.Recording.Quality)
	}
	if cfg.Recording.MaxDurationSeconds != 60 {
		t.Errorf("max duration = %d", cfg.Recording.MaxDurationSeconds)
	}
	if cfg.Recording.DelayMode != "per_frame" || cfg.Recording.CaptureBackend != "auto" {
		t.Errorf("delay/backend = %s/%s", cfg.Recording.DelayMode, cfg.Recording.CaptureBackend)
	}
	// Keys absent from the file keep defaults
	if cfg.Editor.MosaicBlockSize != 16 {
		t.Errorf("mosaic block = %d", cfg.Editor.MosaicBlockSize)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("recording: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetPersists(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Set("recording.fps", "60"); err != nil {
		t.Fatalf("Set fps: %v", err)
	}
	if err := m.Set("recording.region", "10,20,300,200"); err != nil {
		t.Fatalf("Set region: %v", err)
	}
	if err := m.SetPort(9191); err != nil {
		t.Fatalf("SetPort: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := reloaded.Get()
	if cfg.Recording.FPS != 60 || cfg.ServerPort != 9191 {
		t.Errorf("reloaded fps/port = %d/%d", cfg.Recording.FPS, cfg.ServerPort)
	}
	if got := cfg.Recording.Region; got != (Region{X: 10, Y: 20, Width: 300, Height: 200}) {
		t.Errorf("region = %+v", got)
	}
	if v, _ := reloaded.Lookup("recording.region"); v != "10,20,300,200" {
		t.Errorf("Lookup region = %q", v)
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	m, _ := newTestManager(t)

	cases := map[string]string{
		"recording.fps":                  "25",
		"recording.quality":              "best",
		"recording.max_duration_seconds": "0",
		"recording.delay_mode":           "x",
		"recording.capture_backend":      "pipewire",
		"recording.dither":               "maybe",
		"recording.region":               "1,2,0,4",
		"server_port":                    "70000",
		"log_level":                      "loud",
		"editor.mosaic_block_size":       "abc",
		"no.such.key":                    "1",
	}
	for key, value := range cases {
		if err := m.Set(key, value); err == nil {
			t.Errorf("Set(%s, %s) succeeded", key, value)
		}
	}
	if m.Get().Recording.FPS != 30 {
		t.Error("rejected value was stored")
	}
}

func TestKeysAreLookupable(t *testing.T) {
	m, _ := newTestManager(t)
	for _, k := range Keys() {
		if _, err := m.Lookup(k); err != nil {
			t.Errorf("Lookup(%s): %v", k, err)
		}
	}
	if _, err := m.Lookup("bogus"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestOverrideDoesNotPersist(t *testing.T) {
	m, path := newTestManager(t)
	m.Override(7000, "debug")

	if m.GetPort() != 7000 || m.GetLogLevel() != "debug" {
		t.Fatalf("override not applied: %d %s", m.GetPort(), m.GetLogLevel())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "7000") {
		t.Error("override was written to disk")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := m.Get()
	cfg.Recording.Redact = append(cfg.Recording.Redact, Region{Width: 1, Height: 1})
	cfg.Recording.FPS = 15

	again := m.Get()
	if len(again.Recording.Redact) != 0 || again.Recording.FPS != 30 {
		t.Error("mutating Get result changed manager state")
	}
}

func TestUpdateValidates(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := m.Get()
	cfg.Recording.FPS = 999
	cfg.Recording.Quality = "original"
	if err := m.Update(cfg); err != nil {
		t.Fatal(err)
	}
	got := m.Get()
	if got.Recording.FPS != 30 || got.Recording.Quality != "original" {
		t.Errorf("after update fps/quality = %d/%s", got.Recording.FPS, got.Recording.Quality)
	}
}

func TestRecordingSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Recording.FPS = 15
	cfg.Recording.Quality = "skip_frames_half_size"
	cfg.Recording.MaxDurationSeconds = 5
	cfg.Recording.Dither = true
	cfg.Recording.DelayMode = "repeat"
	cfg.Recording.Redact = []Region{{X: 1, Y: 2, Width: 3, Height: 4}}
	cfg.Editor.MosaicBlockSize = 8

	s := cfg.RecordingSettings()
	if s.FPS != 15 || s.Quality != recorder.QualitySkipFramesHalfSize {
		t.Errorf("fps/quality = %d/%s", s.FPS, s.Quality)
	}
	if s.MaxDuration != 5*time.Second {
		t.Errorf("max duration = %v", s.MaxDuration)
	}
	if !s.Encode.Dither || s.Encode.DelayMode != gifenc.DelayRepeat {
		t.Errorf("encode options = %+v", s.Encode)
	}
	if len(s.Redact) != 1 || s.Redact[0] != image.Rect(1, 2, 4, 6) || s.RedactBlockSize != 8 {
		t.Errorf("redact = %v / %d", s.Redact, s.RedactBlockSize)
	}
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion(" 5, 6 ,7,8")
	if err != nil {
		t.Fatal(err)
	}
	if r.Rect() != image.Rect(5, 6, 12, 14) {
		t.Errorf("rect = %v", r.Rect())
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,-1,5"} {
		if _, err := ParseRegion(bad); err == nil {
			t.Errorf("ParseRegion(%q) succeeded", bad)
		}
	}
}

func TestOutputPath(t *testing.T) {
	cfg := Defaults()
	cfg.Recording.OutputDir = "/tmp/out"
	got := cfg.OutputPath(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC))
	if got != "/tmp/out/recording-20240309-140507.gif" {
		t.Errorf("OutputPath = %s", got)
	}
}
