package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/gifenc"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
)

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func intField(ptr func(*Config) *int, check func(int) error) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			if check != nil {
				if err := check(n); err != nil {
					return err
				}
			}
			*ptr(c) = n
			return nil
		},
	}
}

func positive(n int) error {
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

var fields = map[string]field{
	"server_port": intField(func(c *Config) *int { return &c.ServerPort }, func(n int) error {
		if n <= 0 || n > 65535 {
			return fmt.Errorf("port out of range: %d", n)
		}
		return nil
	}),
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) error {
			switch level := strings.ToLower(v); level {
			case "debug", "info", "warn", "warning", "error":
				c.LogLevel = level
				return nil
			}
			return fmt.Errorf("unknown log level %q", v)
		},
	},
	"recording.fps": intField(func(c *Config) *int { return &c.Recording.FPS }, func(n int) error {
		if !recorder.ValidFPS(n) {
			return fmt.Errorf("unsupported fps %d (want one of %v)", n, recorder.SupportedFPS)
		}
		return nil
	}),
	"recording.quality": {
		get: func(c *Config) string { return c.Recording.Quality },
		set: func(c *Config, v string) error {
			q, err := recorder.ParseQuality(v)
			if err != nil {
				return err
			}
			c.Recording.Quality = string(q)
			return nil
		},
	},
	"recording.max_duration_seconds": intField(func(c *Config) *int { return &c.Recording.MaxDurationSeconds }, positive),
	"recording.output_dir": {
		get: func(c *Config) string { return c.Recording.OutputDir },
		set: func(c *Config, v string) error {
			if v == "" {
				return fmt.Errorf("output directory cannot be empty")
			}
			c.Recording.OutputDir = v
			return nil
		},
	},
	"recording.capture_backend": {
		get: func(c *Config) string { return c.Recording.CaptureBackend },
		set: func(c *Config, v string) error {
			switch v {
			case capture.BackendAuto, capture.BackendScreenshot, capture.BackendX11:
				c.Recording.CaptureBackend = v
				return nil
			}
			return fmt.Errorf("unknown capture backend %q", v)
		},
	},
	"recording.dither": {
		get: func(c *Config) string { return strconv.FormatBool(c.Recording.Dither) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("not a boolean: %q", v)
			}
			c.Recording.Dither = b
			return nil
		},
	},
	"recording.encode_workers": intField(func(c *Config) *int { return &c.Recording.EncodeWorkers }, func(n int) error {
		if n < 0 {
			return fmt.Errorf("worker count cannot be negative")
		}
		return nil
	}),
	"recording.delay_mode": {
		get: func(c *Config) string { return c.Recording.DelayMode },
		set: func(c *Config, v string) error {
			mode, err := gifenc.ParseDelayMode(v)
			if err != nil {
				return err
			}
			c.Recording.DelayMode = string(mode)
			return nil
		},
	},
	"recording.region": {
		get: func(c *Config) string {
			if c.Recording.Region.IsZero() {
				return ""
			}
			return c.Recording.Region.String()
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Recording.Region = Region{}
				return nil
			}
			r, err := ParseRegion(v)
			if err != nil {
				return err
			}
			c.Recording.Region = r
			return nil
		},
	},
	"editor.mosaic_block_size": intField(func(c *Config) *int { return &c.Editor.MosaicBlockSize }, positive),
	"editor.blur_iterations":   intField(func(c *Config) *int { return &c.Editor.BlurIterations }, positive),
	"editor.thumbnail_width":   intField(func(c *Config) *int { return &c.Editor.ThumbnailWidth }, positive),
	"editor.thumbnail_height":  intField(func(c *Config) *int { return &c.Editor.ThumbnailHeight }, positive),
}

// Keys lists the settable configuration keys
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the string form of a configuration value
func (m *Manager) Lookup(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return f.get(m.config), nil
}

// Set parses and stores a single value, then saves
func (m *Manager) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	m.mu.Lock()
	err := f.set(m.config, value)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	logger.WithComponent("config").Info().
		Str("key", key).
		Str("value", value).
		Msg("Config value updated")
	return m.Save()
}
