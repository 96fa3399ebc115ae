package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rentals/internal/config"

	"github.com/rs/zerolog"
)

// New builds the process logger: JSON to stdout at info level unless the
// config says otherwise. The closer is non-nil only for file output.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	output, closer, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch normalize(cfg.Format) {
	case "console", "text":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := newLogger(output, parseLevel(cfg.Level), app)
	return &logger, closer, nil
}

// newLogger attaches the application fields that are set.
func newLogger(w io.Writer, level zerolog.Level, app config.AppConfig) zerolog.Logger {
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	fields := []struct{ key, value string }{
		{"app", app.Name},
		{"env", app.Environment},
		{"version", app.Version},
	}
	for _, f := range fields {
		if f.value != "" {
			ctx = ctx.Str(f.key, f.value)
		}
	}
	return ctx.Logger()
}

func parseLevel(raw string) zerolog.Level {
	if raw = normalize(raw); raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		if dir := filepath.Dir(cfg.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Component returns a child logger tagged with the component name.
func Component(logger *zerolog.Logger, name string) *zerolog.Logger {
	l := logger.With().Str("component", name).Logger()
	return &l
}
