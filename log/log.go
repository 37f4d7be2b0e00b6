package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrorPrinter receives user-facing error output.
type ErrorPrinter interface {
	Ln(v ...interface{})
	F(format string, v ...interface{})
}

type writerErrorPrinter struct {
	w io.Writer
}

func NewErrorPrinter(w io.Writer) ErrorPrinter {
	return &writerErrorPrinter{w: w}
}

func NewStderrErrorPrinter() ErrorPrinter {
	return NewErrorPrinter(os.Stderr)
}

func (p *writerErrorPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(p.w, v...)
}

func (p *writerErrorPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(p.w, format, v...)
}

type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// New creates a logger writing to w. Diagnostics never go to stdout, which
// carries the report.
func New(cfg Config, w io.Writer) zerolog.Logger {
	var output io.Writer = w
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
		}
	}
	return zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

func NewStderr(cfg Config) zerolog.Logger {
	return New(cfg, os.Stderr)
}
