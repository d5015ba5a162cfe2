// Package zerolog backs the admitme Logger interface with rs/zerolog.
package zerolog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/admitme/admitme-server"
	"github.com/rs/zerolog"
)

// Logger adapts a zerolog.Logger to admitme.Logger. Arguments after the
// message are key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

var _ admitme.Logger = (*Logger)(nil)

// New builds a logger writing to w at level. pretty switches to the console
// writer.
func New(w io.Writer, level string, pretty bool) *Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return &Logger{
		zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// Wrap adapts an existing zerolog logger.
func Wrap(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Named returns a child logger tagged with component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug(msg string, args ...any) {
	emit(l.zl.Debug(), msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	emit(l.zl.Info(), msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	emit(l.zl.Warn(), msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	emit(l.zl.Error(), msg, args)
}

func emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}

	fields := make([]any, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields = append(fields, "extra", args[i])
			break
		}
		val := args[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		fields = append(fields, key, val)
	}

	e.Fields(fields).Msg(msg)
}
