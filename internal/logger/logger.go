package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MikeBiancalana/wxctl/internal/config"
)

// Config controls how the process logger is built.
// Empty fields fall back to the environment (LOG_LEVEL, LOG_FORMAT).
type Config struct {
	Level  string
	Format string
	// File is a log file name or path. Relative names are placed in config.LogDir().
	File string
}

var (
	logger    *slog.Logger
	logLevel  slog.Level
	logFormat string
	logFile   string
	logCloser io.Closer
	mu        sync.Mutex
	once      sync.Once
)

func init() {
	Initialize()
}

// Initialize configures the logger from the environment. Only the first call has an effect.
func Initialize() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		build(Config{})
	})
}

// InitializeWithConfig replaces the process logger. Settings from the config file
// arrive after startup, so unlike Initialize this can run more than once.
func InitializeWithConfig(cfg Config) {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	build(cfg)
}

func build(cfg Config) {
	levelStr := cfg.Level
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = os.Getenv("WXCTL_DEBUG")
		if levelStr == "1" || levelStr == "true" {
			levelStr = "DEBUG"
		} else {
			levelStr = "INFO"
		}
	}
	logLevel = parseLevel(levelStr)

	logFormat = cfg.Format
	if logFormat == "" {
		logFormat = os.Getenv("LOG_FORMAT")
	}
	if logFormat == "" {
		logFormat = "text"
	}
	logFormat = strings.ToLower(logFormat)

	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}

	var out io.Writer = os.Stderr
	logFile = ""
	if cfg.File != "" {
		f, path, err := openLogFile(cfg.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file, logging to stderr: %v\n", err)
		} else {
			out = f
			logFile = path
			logCloser = f
		}
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger = slog.New(handler)
}

func openLogFile(name string) (*os.File, string, error) {
	path := name
	if !filepath.IsAbs(path) {
		logDir, err := config.LogDir()
		if err != nil {
			return nil, "", err
		}
		path = filepath.Join(logDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		build(Config{})
	}
	return logger
}

func GetLevel() slog.Level {
	GetLogger()
	mu.Lock()
	defer mu.Unlock()
	return logLevel
}

func GetFormat() string {
	GetLogger()
	mu.Lock()
	defer mu.Unlock()
	return logFormat
}

// GetFile returns the path of the active log file, or "" when logging to stderr.
func GetFile() string {
	mu.Lock()
	defer mu.Unlock()
	return logFile
}

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Close releases the log file, if any. Later log calls go to stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	logFile = ""
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	return err
}
