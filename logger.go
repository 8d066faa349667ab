package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the operational logger.  Level "debug" selects zap's
// development config; everything else starts from the production config.
func newLogger(opts LogOptions) (*zap.Logger, error) {
	var config zap.Config
	if opts.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}

	if opts.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// EventLogger appends timestamped safety events (trips, settings changes) to
// a journal file, one "RFC3339 - message" line each.  The file is opened on
// the first event and kept open until Close.  A nil EventLogger or one with an
// empty path discards events.
type EventLogger struct {
	mu       sync.Mutex
	filePath string
	f        *os.File
}

// NewEventLogger creates a journal at filePath.
func NewEventLogger(filePath string) *EventLogger {
	return &EventLogger{filePath: filePath}
}

// Log records one event.  The journal is best effort: write failures go to
// standard error and never reach the caller.
func (el *EventLogger) Log(format string, args ...any) {
	if el == nil || el.filePath == "" {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.f == nil {
		f, err := os.OpenFile(el.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "event journal %s: %v\n", el.filePath, err)
			return
		}
		el.f = f
	}
	line := time.Now().UTC().Format(time.RFC3339) + " - " + fmt.Sprintf(format, args...) + "\n"
	if _, err := el.f.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "event journal %s: %v\n", el.filePath, err)
	}
}

// Close releases the journal file.  Later events reopen it.
func (el *EventLogger) Close() error {
	if el == nil {
		return nil
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.f == nil {
		return nil
	}
	err := el.f.Close()
	el.f = nil
	return err
}
