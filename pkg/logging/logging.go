// Package logging wires zerolog for utgallery and provides the Sink type used
// to inject a plain timestamped-message logger into the scanner and gallery.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Options controls logger construction
type Options struct {
	App    string    // Added as the "app" field
	Level  string    // debug, info, warn, error; defaults to info
	Format string    // "console" or "json"; defaults to console
	Out    io.Writer // Defaults to os.Stderr
}

// New builds a zerolog logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), errors.Newf("invalid log format %q", opts.Format)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	return ctx.Logger(), nil
}

// Sink accepts a single log message. Sinks are fire-and-forget: write
// failures are ignored.
type Sink func(message string)

// Discard drops every message.
func Discard(string) {}

// NewSink returns a Sink that logs each message at info level on logger.
func NewSink(logger zerolog.Logger) Sink {
	return func(message string) {
		logger.Info().Msg(message)
	}
}

// TimestampSink writes "<RFC3339 time> <message>" lines to w.
func TimestampSink(w io.Writer) Sink {
	return timestampSink(w, time.Now)
}

func timestampSink(w io.Writer, now func() time.Time) Sink {
	return func(message string) {
		_, _ = fmt.Fprintf(w, "%s %s\n", now().Format(time.RFC3339), message)
	}
}

// Logf formats and sends a message to sink. A nil sink is a no-op.
func (s Sink) Logf(format string, args ...any) {
	if s == nil {
		return
	}
	s(fmt.Sprintf(format, args...))
}
