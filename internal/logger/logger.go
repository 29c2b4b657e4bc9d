// Package logger wraps zerolog with the few helpers the streamer needs:
// a JSON or console root logger, tagged child loggers and an adapter for
// pion's leveled logging.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var pid = os.Getpid()

type Logger struct {
	logger *zerolog.Logger
}

// New returns a JSON logger writing to stderr.
func New(isDebug bool) *Logger {
	setLevel(isDebug)
	l := zerolog.New(os.Stderr).With().Timestamp().Int("pid", pid).Logger()
	return &Logger{logger: &l}
}

// NewConsole returns a human-readable logger. The tag is printed in front
// of every message and names the binary (streamer, viewer).
func NewConsole(isDebug bool, tag string, noColor bool) *Logger {
	setLevel(isDebug)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	out := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.0000",
		NoColor:    noColor,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"s",
			"c",
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"s", "c"},
	}
	l := zerolog.New(out).With().
		Str("s", tag).
		Str("c", " ").
		Timestamp().Logger()
	return &Logger{logger: &l}
}

// NewWriter is mostly for tests.
func NewWriter(w io.Writer) *Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{logger: &l}
}

// Nop discards everything.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{logger: &l}
}

func setLevel(isDebug bool) {
	level := zerolog.InfoLevel
	if isDebug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Extend adds some additional context to the existing logger.
func (l *Logger) Extend(ctx zerolog.Context) *Logger {
	logger := ctx.Logger()
	return &Logger{logger: &logger}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return l.Extend(l.With().Str("c", fmt.Sprintf("[%s]", name)))
}

func (l *Logger) With() zerolog.Context { return l.logger.With() }

func (l *Logger) GetLevel() zerolog.Level { return l.logger.GetLevel() }

func (l *Logger) Level(level zerolog.Level) zerolog.Logger { return l.logger.Level(level) }

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }

func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal calls os.Exit(1) after the event is sent.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func (l *Logger) WithLevel(level zerolog.Level) *zerolog.Event { return l.logger.WithLevel(level) }
