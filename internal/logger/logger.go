package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every entry so shared log sinks can tell the
// composer apart from the exam runtime.
const ServiceName = "qbank-composer"

// Setup initializes the process logger on stdout.
//   - level: trace, debug, info, warn, error, fatal or panic; anything else means info
//   - format: "json" for production, "pretty" for console output
func Setup(level, format string) zerolog.Logger {
	return New(os.Stdout, level, format)
}

// New builds a logger writing to out. Durations are rendered in milliseconds
// with fractional precision, which is what the access log and the compute
// timings report.
func New(out io.Writer, level, format string) zerolog.Logger {
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = false

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "pretty" {
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
		return zerolog.New(console).With().Timestamp().Logger()
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", ServiceName).
		Caller().
		Logger()
}

// Component derives a child logger tagged with the owning component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
