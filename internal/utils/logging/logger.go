// Package logging builds the process logger: JSON slog records written to
// stdout and, when a directory is configured, to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stdout is where records go besides the file; nil means os.Stdout.
	Stdout io.Writer
}

// Logger bundles the slog logger with the rotating writer it owns so callers
// can share the writer (e.g. with the HTTP access log) and close it on exit.
type Logger struct {
	*slog.Logger
	Writer  io.Writer
	rotator *lumberjack.Logger
}

func New(cfg Config) (*Logger, error) {
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}

	var rotator *lumberjack.Logger
	writer := out
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		name := cfg.FileName
		if name == "" {
			name = "app.log"
		}
		rotator = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		writer = io.MultiWriter(out, rotator)
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return &Logger{
		Logger:  slog.New(handler),
		Writer:  writer,
		rotator: rotator,
	}, nil
}

// Discard returns a logger that drops everything; tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
