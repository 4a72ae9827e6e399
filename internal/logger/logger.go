package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog so the rest of the codebase does not depend on it directly.
type Logger struct {
	logger zerolog.Logger
}

// Fields represents structured log fields.
type Fields map[string]interface{}

// Default is the process-wide logger instance.
var Default *Logger

// Init configures the global logger. Level comes from LOG_LEVEL, falling back
// to debug outside production.
func Init() {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	Default = &Logger{logger: l}
}

func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("APP_ENV") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithField returns a child logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying extra fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithError returns a child logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

func ensure() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// ForEngine returns a logger scoped to one search engine.
func ForEngine(engine string) *Logger {
	return ensure().WithField("engine", engine)
}

// ForTask returns a logger scoped to one discovery task.
func ForTask(taskID string) *Logger {
	return ensure().WithField("task_id", taskID)
}

// ForComponent returns a logger scoped to a named component.
func ForComponent(name string) *Logger {
	return ensure().WithField("component", name)
}

// Debug logs a formatted debug message on the default logger.
func Debug(format string, v ...interface{}) {
	ensure().Debug().Msgf(format, v...)
}

// Info logs a formatted info message on the default logger.
func Info(format string, v ...interface{}) {
	ensure().Info().Msgf(format, v...)
}

// Warn logs a formatted warning message on the default logger.
func Warn(format string, v ...interface{}) {
	ensure().Warn().Msgf(format, v...)
}

// Error logs a formatted error message on the default logger.
func Error(format string, v ...interface{}) {
	ensure().Error().Msgf(format, v...)
}

// Fatal logs a formatted fatal message and exits.
func Fatal(format string, v ...interface{}) {
	ensure().Fatal().Msgf(format, v...)
}
