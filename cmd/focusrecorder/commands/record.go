package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/output"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a screen region to a GIF",
	Long: `Record a rectangular region of the screen until Ctrl+C is pressed or the
maximum duration is reached, then encode it as an animated GIF.

Flags override the configuration file for this run only.`,
	Example: `  # Record the whole screen with configured defaults
  focusrecorder record

  # Record a 640x480 region at 60 FPS
  focusrecorder record --region 100,100,640,480 --fps 60

  # Record the window that currently has focus
  focusrecorder record --window

  # Keep every frame at native resolution, stop after 10 seconds
  focusrecorder record --quality original --max-duration 10 --output demo.gif`,
	RunE: runRecord,
}

var (
	recordOutput string
	recordWindow bool
)

func init() {
	rootCmd.AddCommand(recordCmd)

	flags := recordCmd.Flags()
	flags.String("region", "", "capture region as x,y,width,height (default is the whole screen)")
	flags.Int("fps", 0, "frames per second (15, 30 or 60)")
	flags.String("quality", "", "quality preset (original, skip_frames, skip_frames_half_size)")
	flags.Int("max-duration", 0, "maximum recording length in seconds")
	flags.String("backend", "", "capture backend (auto, screenshot, x11)")
	flags.String("delay-mode", "", "frame timing (per_frame or repeat)")
	flags.Bool("dither", false, "apply Floyd-Steinberg dithering")
	flags.BoolVarP(&recordWindow, "window", "w", false, "record the area of the focused X11 window")
	flags.StringVarP(&recordOutput, "output", "o", "", "output file (default is a timestamped file in recording.output_dir)")

	viper.BindPFlag("recording.region", flags.Lookup("region"))
	viper.BindPFlag("recording.fps", flags.Lookup("fps"))
	viper.BindPFlag("recording.quality", flags.Lookup("quality"))
	viper.BindPFlag("recording.max_duration_seconds", flags.Lookup("max-duration"))
	viper.BindPFlag("recording.capture_backend", flags.Lookup("backend"))
	viper.BindPFlag("recording.delay_mode", flags.Lookup("delay-mode"))
	viper.BindPFlag("recording.dither", flags.Lookup("dither"))
}

// applyRecordFlags copies flags set on the command line into cfg and
// rejects values that validation would otherwise replace.
func applyRecordFlags(cfg *config.Config) error {
	rc := &cfg.Recording
	if viper.IsSet("recording.region") {
		r, err := config.ParseRegion(viper.GetString("recording.region"))
		if err != nil {
			return err
		}
		rc.Region = r
	}
	if viper.IsSet("recording.fps") {
		rc.FPS = viper.GetInt("recording.fps")
	}
	if viper.IsSet("recording.quality") {
		rc.Quality = viper.GetString("recording.quality")
	}
	if viper.IsSet("recording.max_duration_seconds") {
		rc.MaxDurationSeconds = viper.GetInt("recording.max_duration_seconds")
	}
	if viper.IsSet("recording.capture_backend") {
		rc.CaptureBackend = viper.GetString("recording.capture_backend")
	}
	if viper.IsSet("recording.delay_mode") {
		rc.DelayMode = viper.GetString("recording.delay_mode")
	}
	if viper.IsSet("recording.dither") {
		rc.Dither = viper.GetBool("recording.dither")
	}

	if fixes := cfg.Validate(); len(fixes) > 0 {
		return fmt.Errorf("invalid recording options: %s", strings.Join(fixes, "; "))
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	if err := applyRecordFlags(cfg); err != nil {
		return err
	}
	log := logger.WithComponent("record")

	capturer, err := capture.NewRouter(cfg.Recording.CaptureBackend)
	if err != nil {
		return err
	}
	if err := capturer.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Stop()

	region := cfg.Recording.Region.Rect()
	switch {
	case recordWindow:
		win, err := capture.FocusedWindow()
		if err != nil {
			return fmt.Errorf("failed to find focused window: %w", err)
		}
		region = win.Bounds
		log.Info().
			Uint32("window_id", win.ID).
			Str("title", win.Title).
			Msg("Recording focused window")
	case cfg.Recording.Region.IsZero():
		region = capturer.ScreenBounds()
	}

	path := recordOutput
	if path == "" {
		path = cfg.OutputPath(time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rec := recorder.New(capturer, recorder.Options{})
	events := rec.Subscribe()
	defer rec.Unsubscribe(events)

	id, err := rec.Start(region, cfg.RecordingSettings())
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", id).
		Str("region", region.String()).
		Str("output", path).
		Msg("Recording, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	waitForStop(sigChan, events)

	res, err := rec.StopAndEncode(context.Background(), output.NewFileSink(path))
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s: %d frames (%d captured, %d skipped), %.1fs\n",
		res.Output, res.Stats.Kept, res.Stats.Captured, res.Stats.Skipped,
		float64(res.Stats.TotalMs)/1000)
	return nil
}

// waitForStop blocks until a signal arrives or the session reaches its
// maximum duration.
func waitForStop(sigChan <-chan os.Signal, events <-chan recorder.Event) {
	log := logger.WithComponent("record")
	for {
		select {
		case <-sigChan:
			log.Info().Msg("Stopping recording")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == recorder.EventMaxDurationReached {
				return
			}
		}
	}
}
