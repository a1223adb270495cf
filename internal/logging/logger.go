// Package logging wraps zerolog with the field conventions the pipeline
// uses throughout: meeting_id, chunk_id, queue, stage.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with pipeline-specific helpers.
type Logger struct {
	logger zerolog.Logger
}

// Config controls how a Logger is constructed.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Pretty bool
}

// DefaultConfig returns sane development defaults.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Pretty: true}
}

// New builds a Logger from Config.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	switch {
	case strings.EqualFold(cfg.Format, "console") && cfg.Pretty:
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	case strings.EqualFold(cfg.Format, "console"):
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339, NoColor: true})
	default:
		base = zerolog.New(os.Stdout)
	}

	base = base.With().Timestamp().Logger()
	return &Logger{logger: base}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// WithMeeting returns a child logger tagged with a meeting id.
func (l *Logger) WithMeeting(meetingID string) *Logger {
	return &Logger{logger: l.logger.With().Str("meeting_id", meetingID).Logger()}
}

// WithChunk returns a child logger additionally tagged with a chunk id.
func (l *Logger) WithChunk(chunkID int) *Logger {
	return &Logger{logger: l.logger.With().Int("chunk_id", chunkID).Logger()}
}

// WithField adds an arbitrary field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }
