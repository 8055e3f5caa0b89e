package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLogger initializes the global logger
func InitLogger(level string, writer io.Writer) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	if writer == nil {
		writer = os.Stdout
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.CallerFieldName = "source"

	log := zerolog.New(writer).With().Timestamp().Caller().Logger()
	zerolog.DefaultContextLogger = &log
}

// FromContext returns a logger from the context, or the default logger if none is found
func FromContext(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	// If no logger is found in context, Ctx returns a disabled logger.
	// We'll check if it's disabled and if so, return the default logger.
	if logger.GetLevel() == zerolog.Disabled {
		defLogger := zerolog.DefaultContextLogger
		if defLogger != nil {
			return defLogger
		}
		// As a final fallback, create a new one, though InitLogger should have been called.
		l := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
		return &l
	}
	return logger
}

// WithCorrelationID tags base with a correlation_id field and binds the
// result into ctx, so every log line written by a monitoring or report
// iteration can be grep'd back to that single run (monitor.Loop.cycle,
// report.Loop.fire).
func WithCorrelationID(ctx context.Context, base zerolog.Logger, correlationID string) (context.Context, zerolog.Logger) {
	tagged := base.With().Str("correlation_id", correlationID).Logger()
	return tagged.WithContext(ctx), tagged
}
