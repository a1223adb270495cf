// Package cmd holds the meetscribe CLI: one subcommand per worker role,
// plus the API server and the migration runner. Each subcommand builds
// its own dependency graph once and hands it to the consume loop.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "meetscribe",
	Short: "Meeting transcription and summarization pipeline",
	Long: `meetscribe ingests meeting recordings and produces transcripts,
summaries, key notes, and action items through a pipeline of broker-driven
worker stages.

Each worker role runs as its own subcommand:
  dispatcher   splits source audio into chunks and fans out chunk messages
  chunkworker  transcribes one chunk at a time
  merger       reassembles chunk results into the final transcript
  summarizer   produces the summary, key notes, and action items
  api          serves the HTTP surface for upload hand-off and polling
  migrate      applies database migrations`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetEnvPrefix("MEETSCRIBE")
	viper.AutomaticEnv()
}

// setup loads configuration and builds the logger every subcommand
// shares. Flags win over the environment for logging knobs.
func setup(component string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := viper.GetString("log_level")
	if level == "" {
		level = cfg.Pipeline.LogLevel
	}
	format := viper.GetString("log_format")

	log := logging.New(logging.Config{
		Level:  level,
		Format: format,
		Pretty: cfg.Server.Env != "production",
	}).WithComponent(component)

	return cfg, log, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM, the
// worker shutdown path: in-flight deliveries stay unacked and the broker
// requeues them.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
