package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/FocusRecorder/internal/config"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	prettyLog bool
	rootCmd   = &cobra.Command{
		Use:   "focusrecorder",
		Short: "FocusRecorder - Record a screen region to an animated GIF",
		Long: `FocusRecorder captures a rectangular region of the screen at a fixed
frame rate and saves it as an animated GIF.

Features:
  • 15, 30 or 60 FPS capture
  • Duplicate frame detection with variable frame durations
  • Half-size quality preset for smaller files
  • Mosaic redaction of sensitive areas
  • Live MJPEG preview and REST API
  • Mosaic, blur, grayscale, invert and thumbnail image tools`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/focusrecorder/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", true, "human readable console logs instead of JSON")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file, applies --port and --log-level for
// this run only and initializes logging.
func loadConfig() (*config.Manager, error) {
	logger.Init(viper.GetString("log_level"), prettyLog)

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var port int
	var level string
	if viper.IsSet("server_port") {
		port = viper.GetInt("server_port")
	}
	if viper.IsSet("log_level") {
		level = viper.GetString("log_level")
	}
	configMgr.Override(port, level)

	logger.Init(configMgr.GetLogLevel(), prettyLog)
	return configMgr, nil
}
