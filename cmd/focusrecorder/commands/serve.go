package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/api"
	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/output"
	"github.com/bryanchriswhite/FocusRecorder/internal/recorder"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FocusRecorder server",
	Long: `Start the FocusRecorder HTTP server.

The server provides a REST API for starting, stopping and cancelling
recordings, a websocket event stream and a live MJPEG preview of the frames
being recorded.`,
	Example: `  # Start server on default port (8080)
  focusrecorder serve

  # Start server on custom port
  focusrecorder serve --port 9090

  # Start with specific config file
  focusrecorder serve --config /path/to/config.yaml

  # Start with debug logging
  focusrecorder serve --log-level debug`,
	RunE: runServe,
}

var (
	servePreviewFPS    int
	serveShutdownGrace time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePreviewFPS, "preview-fps", 10, "maximum frame rate of the live preview")
	serveCmd.Flags().DurationVar(&serveShutdownGrace, "shutdown-grace", 30*time.Second, "time allowed to finish encoding on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	capturer, err := capture.NewRouter(cfg.Recording.CaptureBackend)
	if err != nil {
		return err
	}
	if err := capturer.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Stop()

	preview := output.NewPreviewOutput(output.Config{FPS: servePreviewFPS})
	if err := preview.Start(); err != nil {
		return fmt.Errorf("failed to start preview: %w", err)
	}
	defer preview.Stop()

	rec := recorder.New(capturer, recorder.Options{Preview: preview})
	server := api.NewServer(rec, configMgr, preview, capturer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Str("capturer", capturer.Name()).
		Str("web_ui", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Str("preview", fmt.Sprintf("http://localhost:%d/preview", cfg.ServerPort)).
		Msg("FocusRecorder is running, press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case err := <-errCh:
		if err != nil {
			server.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
	defer cancel()
	return server.Shutdown(ctx)
}
