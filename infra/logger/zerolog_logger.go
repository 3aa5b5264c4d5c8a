package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options tunes a ZerologLogger. The zero value logs at info level to stderr.
type Options struct {
	// Level is a zerolog level name such as "debug" or "warn".
	Level string
	// Out receives the log lines. Results go to stdout, so logs default to
	// stderr.
	Out io.Writer
	// Console forces the human readable writer regardless of APP_ENV.
	Console bool
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	l, _ := NewWithOptions(component, Options{})
	return l
}

// NewWithOptions builds a logger for component. An unknown level is reported
// and the logger falls back to info.
func NewWithOptions(component string, opts Options) (*ZerologLogger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Console || strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	var err error
	if opts.Level != "" {
		parsed, perr := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if perr != nil || parsed == zerolog.NoLevel {
			err = fmt.Errorf("log level %q: unknown level", opts.Level)
		} else {
			level = parsed
		}
	}
	z := zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}, err
}

// With returns a child logger carrying an extra string field.
func (l *ZerologLogger) With(key, value string) *ZerologLogger {
	return &ZerologLogger{log: l.log.With().Str(key, value).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
