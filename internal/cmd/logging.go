package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var logger *slog.Logger

// initLogging builds the process logger from --log-level and --verbose and
// installs it as the slog default.
func initLogging() {
	logger = newLogger(os.Stderr, viper.GetString("log_level"), viper.GetBool("verbose"))
	slog.SetDefault(logger)
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := parseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
