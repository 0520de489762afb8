// Package log configures the zerolog loggers used by riskbench commands and
// the tuning orchestrator.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// New returns a logger writing to w at the given level. When console is true,
// output is human-readable; otherwise JSON lines.
func New(w io.Writer, level string, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Default returns a console logger on stderr at info level.
func Default() zerolog.Logger {
	return New(os.Stderr, "info", true)
}

// ParseLevel maps a level name to a zerolog level; unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// RouteWarnings sends library warnings (e.g. ConvergenceWarning) to l.
// Warning types implementing zerolog.LogObjectMarshaler are logged
// structurally.
func RouteWarnings(l zerolog.Logger) {
	errors.SetWarningHandler(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			l.Warn().Object("warning", m).Msg(w.Error())
			return
		}
		l.Warn().Msg(w.Error())
	})
}
