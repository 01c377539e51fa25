package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/noor/internal/control"
	"github.com/vietddude/noor/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
	asJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "noor",
	Short: "Noor content service",
	Long:  `Noor serves prayer times, scripture and commentary from unreliable upstreams with caching, retries and offline fallbacks.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")
}

// loadConfig reads .env and the config file, then installs the logger. A
// missing default config file is not an error.
func loadConfig(cmd *cobra.Command) *config.AppConfig {
	_ = godotenv.Load()

	path := cfgPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	return cfg
}

// newApp builds the application or exits.
func newApp(cfg *config.AppConfig) *control.App {
	app, err := control.NewApp(control.Config{App: cfg})
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	return app
}
