package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type loggingSettings struct {
	Level  string
	Format string
}

var logging = loggingSettings{Level: "info", Format: "text"}

var rootCmd = &cobra.Command{
	Use:   "avatar-relay",
	Short: "Relay chat and speech requests and warm the avatar core runtime",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(logging)
	},
	SilenceUsage: true,
}

func initLogger(s loggingSettings) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s.Level)))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", s.Level)
	}
	zerolog.SetGlobalLevel(level)

	switch s.Format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "text", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return errors.Errorf("invalid log format %q (want text or json)", s.Format)
	}
	return nil
}

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logging.Level, "log-level", logging.Level, "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&logging.Format, "log-format", logging.Format, "Log format (text or json)")

	rootCmd.AddCommand(newServeCommand(), newWarmCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
