package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arin/gallery-chat/internal/config"
	"github.com/arin/gallery-chat/internal/logging"
)

var (
	logLevel  string
	plainMode bool
)

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "An AI guide for the art gallery",
	Long: `gallery is a chat assistant for visitors of the art gallery. Ask about
artists, techniques, movements, and the works on display.

Examples:
  gallery                         start chatting (full-screen in a terminal)
  gallery ask "who painted the water lilies?"
  gallery serve --addr :8080      serve the chat widget to browsers
  gallery config set-key <key>    store your Gemini API key`,
	RunE:                       runChat,
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "Use the line-based chat even in a terminal")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statsCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main. An interrupt cancels the
// running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds the stderr logger. --log-level wins over the config file.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level, os.Stderr)
}
