package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aokisawa/riskbench/pkg/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", false)

	logger.Info().Str("phase", "grid").Msg("evaluation phase complete")

	out := buf.String()
	if !strings.Contains(out, `"phase":"grid"`) {
		t.Errorf("log output missing structured field: %s", out)
	}

	buf.Reset()
	logger.Debug().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("debug message emitted at info level: %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf, "info", false), "tuning")

	logger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"tuning"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}

func TestRouteWarnings(t *testing.T) {
	var buf bytes.Buffer
	RouteWarnings(New(&buf, "info", false))
	defer errors.SetWarningHandler(nil)

	errors.Warn(errors.NewConvergenceWarning("gradient descent", 400))

	out := buf.String()
	if !strings.Contains(out, "gradient descent") || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("warning not routed to logger: %s", out)
	}
}
