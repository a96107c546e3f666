package telemetry

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InitSlog installs the default text handler for the process. Verbose
// enables debug-level output, which also turns on the resty
// request/response dumps in restyutil.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// Tracer is a shorthand over otel.Tracer so packages can declare
// their tracer next to their other package globals.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
