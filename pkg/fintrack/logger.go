package fintrack

import (
	"github.com/rs/zerolog"
)

// zerologLogger adapts a zerolog.Logger to Logger
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps l so it can be passed as ClientOptions.Logger.
// keysAndValues are attached as fields in pairs.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{logger: l}
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	z.logger.Error().Fields(keysAndValues).Msg(msg)
}
