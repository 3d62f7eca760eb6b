package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// SetLevel adjusts the global log level from a string such as "debug" or "warn".
// Unknown values leave the level unchanged.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		Warn("Unknown log level, keeping current", level)
		return
	}
	defaultLogger = defaultLogger.Level(lvl)
}

// SetOutput replaces the log destination, mainly so tests can capture output.
func SetOutput(w io.Writer) {
	defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().Timestamp().Logger().Level(defaultLogger.GetLevel())
}

// render joins a message and any trailing values the way the call sites
// expect: logger.Warn("no stats for team", name, err)
func render(msg string, v ...any) string {
	if len(v) == 0 {
		return msg
	}
	parts := make([]string, 0, len(v)+1)
	parts = append(parts, msg)
	for _, item := range v {
		parts = append(parts, fmt.Sprintf("%v", item))
	}
	return strings.Join(parts, " ")
}

func Debug(msg string, v ...any) {
	defaultLogger.Debug().Msg(render(msg, v...))
}

func Info(msg string, v ...any) {
	defaultLogger.Info().Msg(render(msg, v...))
}

func Warn(msg string, v ...any) {
	defaultLogger.Warn().Msg(render(msg, v...))
}

func Error(msg string, v ...any) {
	defaultLogger.Error().Msg(render(msg, v...))
}

func Fatal(msg string, v ...any) {
	defaultLogger.Fatal().Msg(render(msg, v...))
}
