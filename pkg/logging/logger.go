package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging seam used across the codebase so components can be
// tested with a disabled logger and the CLI can swap verbosity at startup.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	SetLevel(level slog.Level)
}

// Config controls level, format and destination of a logger.
type Config struct {
	Level   slog.Level
	Format  Format
	Output  io.Writer
	AddTime bool
}

// Format selects the handler encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// slogAdapter backs Logger with a slog.Logger. It keeps its Config so
// SetLevel can rebuild the handler in place.
type slogAdapter struct {
	base *slog.Logger
	cfg  Config
}

func (l *slogAdapter) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
func (l *slogAdapter) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *slogAdapter) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *slogAdapter) Error(msg string, args ...any) { l.base.Error(msg, args...) }

// With returns a logger carrying extra attributes on every record.
func (l *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{base: l.base.With(args...), cfg: l.cfg}
}

// SetLevel swaps the handler for one at the new level.
func (l *slogAdapter) SetLevel(level slog.Level) {
	l.cfg.Level = level
	l.base = slog.New(newHandler(l.cfg))
}

func newHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if !cfg.AddTime {
		opts.ReplaceAttr = dropTime
	}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.NewTextHandler(cfg.Output, opts)
}

// dropTime strips the time attribute so terminal output stays terse.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// NewLogger builds a logger from an explicit Config. A nil Output
// falls back to stderr.
func NewLogger(config Config) Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}
	return &slogAdapter{
		base: slog.New(newHandler(config)),
		cfg:  config,
	}
}

// NewDefaultLogger builds the normal CLI logger: info level, text on
// stderr, no timestamps. PROMPTFIT_LOG_LEVEL and PROMPTFIT_LOG_FORMAT
// override the defaults.
func NewDefaultLogger() Logger {
	return stderrLogger(levelFromEnv(slog.LevelInfo))
}

// NewVerboseLogger logs from debug up, ignoring the environment level.
func NewVerboseLogger() Logger {
	return stderrLogger(slog.LevelDebug)
}

// NewQuietLogger keeps only errors.
func NewQuietLogger() Logger {
	return stderrLogger(slog.LevelError)
}

// NewDisabledLogger discards everything; tests use it to silence components.
func NewDisabledLogger() Logger {
	return NewLogger(Config{Level: slog.Level(1000), Output: io.Discard})
}

func stderrLogger(level slog.Level) Logger {
	return NewLogger(Config{
		Level:  level,
		Format: formatFromEnv(FormatText),
		Output: os.Stderr,
	})
}

func levelFromEnv(fallback slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv("PROMPTFIT_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func formatFromEnv(fallback Format) Format {
	if strings.ToLower(os.Getenv("PROMPTFIT_LOG_FORMAT")) == "json" {
		return FormatJSON
	}
	return fallback
}

// globalLogger is what package-level helpers and component loggers write
// through. The CLI replaces it once flags are parsed.
var globalLogger Logger = NewDefaultLogger()

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() Logger {
	return globalLogger
}

func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }

// NewComponentLogger returns the global logger tagged with a component name,
// e.g. "planner", "render", "advisory".
func NewComponentLogger(component string) Logger {
	return globalLogger.With("component", component)
}
