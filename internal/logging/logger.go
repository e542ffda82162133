package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"eta/internal/config"
)

// LogFileName is the file NewFromConfig writes inside the configured log
// directory.
const LogFileName = "eta.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	// SessionID, when set, is attached to every record.
	SessionID string
}

// New constructs a slog logger using the provided options. "stdout" and
// "stderr" outputs use the requested format; file outputs always get JSON.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	streams, files, err := openWriters(defaultSlice(opts.OutputPaths, []string{"stderr"}))
	if err != nil {
		return nil, err
	}

	var handlers []slog.Handler
	if streams != nil {
		if format == "json" {
			handlers = append(handlers, newJSONHandler(streams, levelVar, addSource))
		} else {
			handlers = append(handlers, newPrettyHandler(streams, levelVar, addSource))
		}
	}
	if files != nil {
		handlers = append(handlers, newJSONHandler(files, levelVar, addSource))
	}

	handler := newFanoutHandler(handlers...)
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		handler = withSession(handler, id)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults. Output
// goes to stderr and to LogFileName inside the log directory unless the
// config lists its own outputs.
func NewFromConfig(cfg *config.Config, sessionID string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", SessionID: sessionID})
	}

	outputs := cfg.Logging.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
		if cfg.Paths.LogDir != "" {
			if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, LogFileName))
		}
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: cfg.Logging.Development,
		SessionID:   sessionID,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), value...)
}

// openWriters splits outputs into terminal streams and log files. Either
// result is nil when no output of that kind is configured.
func openWriters(outputPaths []string) (streams io.Writer, files io.Writer, err error) {
	seen := map[string]struct{}{}
	var streamWriters, fileWriters []io.Writer

	for _, path := range outputPaths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			streamWriters = append(streamWriters, os.Stdout)
		case "stderr":
			streamWriters = append(streamWriters, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			fileWriters = append(fileWriters, file)
		}
	}

	return combine(streamWriters), combine(fileWriters), nil
}

func combine(writers []io.Writer) io.Writer {
	switch len(writers) {
	case 0:
		return nil
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
