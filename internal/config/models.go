package config

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/gifenc"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
	"gopkg.in/yaml.v3"
)

// Region is a rectangle in physical screen pixels
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Rect converts the region to an image.Rectangle. A negative size is kept
// as an empty rectangle rather than flipped.
func (r Region) Rect() image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(r.X, r.Y),
		Max: image.Pt(r.X+r.Width, r.Y+r.Height),
	}
}

// IsZero reports whether the region is unset
func (r Region) IsZero() bool {
	return r == Region{}
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRegion parses "x,y,width,height"
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("invalid region %q (want x,y,width,height)", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return Region{}, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// RecordingConfig holds the settings snapshotted when a recording starts
type RecordingConfig struct {
	FPS                int      `json:"fps" yaml:"fps"`
	Quality            string   `json:"quality" yaml:"quality"`
	MaxDurationSeconds int      `json:"max_duration_seconds" yaml:"max_duration_seconds"`
	OutputDir          string   `json:"output_dir" yaml:"output_dir"`
	CaptureBackend     string   `json:"capture_backend" yaml:"capture_backend"`
	Dither             bool     `json:"dither" yaml:"dither"`
	EncodeWorkers      int      `json:"encode_workers" yaml:"encode_workers"`
	DelayMode          string   `json:"delay_mode" yaml:"delay_mode"`
	Region             Region   `json:"region" yaml:"region"`
	Redact             []Region `json:"redact" yaml:"redact"`
}

// EditorConfig holds defaults for the pixel-block operations
type EditorConfig struct {
	MosaicBlockSize int `json:"mosaic_block_size" yaml:"mosaic_block_size"`
	BlurIterations  int `json:"blur_iterations" yaml:"blur_iterations"`
	ThumbnailWidth  int `json:"thumbnail_width" yaml:"thumbnail_width"`
	ThumbnailHeight int `json:"thumbnail_height" yaml:"thumbnail_height"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int             `json:"server_port" yaml:"server_port"`
	LogLevel   string          `json:"log_level" yaml:"log_level"`
	Recording  RecordingConfig `json:"recording" yaml:"recording"`
	Editor     EditorConfig    `json:"editor" yaml:"editor"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	outputDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		outputDir = filepath.Join(home, "Pictures", "FocusRecorder")
	}
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Recording: RecordingConfig{
			FPS:                recorder.DefaultFPS,
			Quality:            string(recorder.QualitySkipFrames),
			MaxDurationSeconds: 60,
			OutputDir:          outputDir,
			CaptureBackend:     capture.BackendAuto,
			EncodeWorkers:      0,
			DelayMode:          string(gifenc.DelayPerFrame),
			Redact:             []Region{},
		},
		Editor: EditorConfig{
			MosaicBlockSize: 16,
			BlurIterations:  1,
			ThumbnailWidth:  320,
			ThumbnailHeight: 240,
		},
	}
}

// Validate replaces unsupported values with defaults and returns a
// description of every change it made.
func (c *Config) Validate() []string {
	var fixed []string
	def := Defaults()

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		fixed = append(fixed, fmt.Sprintf("server_port %d -> %d", c.ServerPort, def.ServerPort))
		c.ServerPort = def.ServerPort
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	r := &c.Recording
	if !recorder.ValidFPS(r.FPS) {
		fixed = append(fixed, fmt.Sprintf("recording.fps %d -> %d", r.FPS, recorder.DefaultFPS))
		r.FPS = recorder.DefaultFPS
	}
	if _, err := recorder.ParseQuality(r.Quality); err != nil {
		fixed = append(fixed, fmt.Sprintf("recording.quality %q -> %q", r.Quality, recorder.QualitySkipFrames))
		r.Quality = string(recorder.QualitySkipFrames)
	}
	if r.MaxDurationSeconds <= 0 {
		fixed = append(fixed, fmt.Sprintf("recording.max_duration_seconds %d -> %d", r.MaxDurationSeconds, def.Recording.MaxDurationSeconds))
		r.MaxDurationSeconds = def.Recording.MaxDurationSeconds
	}
	if _, err := gifenc.ParseDelayMode(r.DelayMode); err != nil {
		fixed = append(fixed, fmt.Sprintf("recording.delay_mode %q -> %q", r.DelayMode, gifenc.DelayPerFrame))
		r.DelayMode = string(gifenc.DelayPerFrame)
	}
	switch r.CaptureBackend {
	case capture.BackendAuto, capture.BackendScreenshot, capture.BackendX11:
	default:
		fixed = append(fixed, fmt.Sprintf("recording.capture_backend %q -> %q", r.CaptureBackend, capture.BackendAuto))
		r.CaptureBackend = capture.BackendAuto
	}
	if r.EncodeWorkers < 0 {
		r.EncodeWorkers = 0
	}
	if r.OutputDir == "" {
		r.OutputDir = def.Recording.OutputDir
	}
	if r.Redact == nil {
		r.Redact = []Region{}
	}

	e := &c.Editor
	if e.MosaicBlockSize <= 0 {
		e.MosaicBlockSize = def.Editor.MosaicBlockSize
	}
	if e.BlurIterations <= 0 {
		e.BlurIterations = def.Editor.BlurIterations
	}
	if e.ThumbnailWidth <= 0 {
		e.ThumbnailWidth = def.Editor.ThumbnailWidth
	}
	if e.ThumbnailHeight <= 0 {
		e.ThumbnailHeight = def.Editor.ThumbnailHeight
	}

	return fixed
}

// RecordingSettings converts the recording section into a session snapshot
func (c *Config) RecordingSettings() recorder.Settings {
	quality, err := recorder.ParseQuality(c.Recording.Quality)
	if err != nil {
		quality = recorder.QualitySkipFrames
	}
	mode, err := gifenc.ParseDelayMode(c.Recording.DelayMode)
	if err != nil {
		mode = gifenc.DelayPerFrame
	}
	redact := make([]image.Rectangle, 0, len(c.Recording.Redact))
	for _, r := range c.Recording.Redact {
		redact = append(redact, r.Rect())
	}
	return recorder.Settings{
		FPS:             c.Recording.FPS,
		Quality:         quality,
		MaxDuration:     time.Duration(c.Recording.MaxDurationSeconds) * time.Second,
		Redact:          redact,
		RedactBlockSize: c.Editor.MosaicBlockSize,
		Encode: gifenc.Options{
			Workers:   c.Recording.EncodeWorkers,
			Dither:    c.Recording.Dither,
			DelayMode: mode,
		},
	}
}

// OutputPath returns a timestamped file name inside the output directory
func (c *Config) OutputPath(now time.Time) string {
	return filepath.Join(c.Recording.OutputDir, "recording-"+now.Format("20060102-150405")+".gif")
}

// clone returns a deep copy
func (c *Config) clone() *Config {
	cp := *c
	cp.Recording.Redact = append([]Region{}, c.Recording.Redact...)
	return &cp
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualConfigPath = filepath.Join(homeDir, ".config", "focusrecorder", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("fps", m.config.Recording.FPS).
		Str("quality", m.config.Recording.Quality).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	// Missing keys keep their defaults
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	for _, fix := range cfg.Validate() {
		logger.WithComponent("config").Warn().
			Str("path", m.configPath).
			Str("fix", fix).
			Msg("Replaced invalid config value")
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return m.config.clone()
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	m.mu.RLock()
	data, err := yaml.Marshal(cfg)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update validates and replaces the whole configuration
func (m *Manager) Update(cfg *Config) error {
	cfg = cfg.clone()
	cfg.Validate()
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Override applies command line values for this run only
func (m *Manager) Override(port int, logLevel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if port > 0 {
		m.config.ServerPort = port
	}
	if logLevel != "" {
		m.config.LogLevel = logLevel
	}
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	return m.Set("server_port", strconv.Itoa(port))
}

// GetPort gets the server port
func (m *Manager) GetPort() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ServerPort
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	return m.Set("log_level", level)
}

// GetLogLevel gets the log level
func (m *Manager) GetLogLevel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.LogLevel
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
