package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Format represents log output formats
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// Config holds configuration options for the logger
type Config struct {
	Level  string
	Format Format
	Output io.Writer
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: TextFormat,
		Output: os.Stderr,
	}
}

// New creates a logrus logger from the given configuration. An empty level
// falls back to info.
func New(config *Config) (*logrus.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level := logrus.InfoLevel
	if strings.TrimSpace(config.Level) != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(config.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
		}
		level = parsed
	}

	log := logrus.New()
	log.SetLevel(level)

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	switch config.Format {
	case JSONFormat:
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case TextFormat, "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	return log, nil
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// WithComponent tags every entry with the component that emitted it.
func WithComponent(log logrus.FieldLogger, component string) *logrus.Entry {
	return log.WithField("component", component)
}
