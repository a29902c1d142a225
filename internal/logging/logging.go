package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and an optional rotating log file.
type Config struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_FILE.
func FromEnv() Config {
	return Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		File:   os.Getenv("LOG_FILE"),
	}
}

// Setup configures the standard logrus logger. The returned closer releases
// the log file and is safe to call when no file is configured.
func Setup(cfg Config) io.Closer {
	return Configure(logrus.StandardLogger(), cfg, os.Stderr)
}

// Configure applies cfg to logger, writing to stderr and, when cfg.File is
// set, to a rotating file as well.
func Configure(logger *logrus.Logger, cfg Config, stderr io.Writer) io.Closer {
	level := logrus.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		} else {
			logger.WithField("level", raw).Warn("unknown log level, using info")
		}
	}
	logger.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		logger.SetOutput(stderr)
		return nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(cfg.MaxSizeMB, 50),
		MaxBackups: positiveOr(cfg.MaxBackups, 5),
		MaxAge:     positiveOr(cfg.MaxAgeDays, 14),
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(stderr, rotator))
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
